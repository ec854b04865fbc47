// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"math/bits"
	"strconv"
)

// ParseID converts a path segment into a positive record ID. Signs,
// whitespace, zero and values that overflow uint are rejected.
//
// Example:
//
//	id, ok := utils.ParseID("42") // 42, true
//	_, ok = utils.ParseID("abc")  // 0, false
//	_, ok = utils.ParseID("0")    // 0, false
func ParseID(s string) (uint, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, bits.UintSize)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
