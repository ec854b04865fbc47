package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/tbourn/go-opinions-backend/internal/http"
	"github.com/tbourn/go-opinions-backend/internal/seed"
	"github.com/tbourn/go-opinions-backend/internal/sysutil"
)

func newLoadCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "load-opinions",
		Short: "Import opinions from a CSV file",
		Long: "Reads a CSV with a header row (title,text,source,added_by) and stores each row.\n" +
			"Rows whose text already exists are skipped.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := sysutil.FirstNonEmpty(file, a.cfg.OpinionsFile)
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			res, err := seed.LoadCSV(cmd.Context(), f, httpapi.NewOpinionService(db), log.Logger)
			if err != nil {
				return fmt.Errorf("load %s: %w", path, err)
			}
			if res.Duplicates > 0 || res.Invalid > 0 {
				log.Info().Int("duplicates", res.Duplicates).Int("invalid", res.Invalid).Msg("rows skipped")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded opinions: %d\n", res.Loaded)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file (default $OPINIONS_FILE or opinions.csv)")
	return cmd
}
