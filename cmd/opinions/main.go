// Command opinions serves the opinions API and bulk-loads opinions from CSV.
//
// @title       Opinions API
// @version     1.0
// @description CRUD over opinions plus a random pick.
// @BasePath    /api
// @accept      json
// @produce     json
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
