// Package seed bulk-loads opinions from CSV files.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-opinions-backend/internal/domain"
	"github.com/tbourn/go-opinions-backend/internal/services"
)

// Creator stores a single opinion. *services.OpinionService satisfies it.
type Creator interface {
	Create(ctx context.Context, in domain.Opinion) (*domain.Opinion, error)
}

var _ Creator = (*services.OpinionService)(nil)

// Result summarizes a load.
type Result struct {
	Loaded     int
	Duplicates int
	Invalid    int
}

// ErrMissingColumns is returned when the header lacks title or text.
var ErrMissingColumns = errors.New("csv header must contain title and text columns")

// columns maps the known header names to their position in a record.
type columns struct {
	title, text, source, addedBy int
}

func parseHeader(header []string) (columns, error) {
	cols := columns{title: -1, text: -1, source: -1, addedBy: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "title":
			cols.title = i
		case "text":
			cols.text = i
		case "source":
			cols.source = i
		case "added_by":
			cols.addedBy = i
		}
	}
	if cols.title < 0 || cols.text < 0 {
		return cols, ErrMissingColumns
	}
	return cols, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func optional(rec []string, i int) *string {
	v := field(rec, i)
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

// LoadCSV reads a header row followed by one opinion per record and creates
// each through c. Rows with duplicate text or missing required fields are
// logged and skipped; any other error stops the load.
func LoadCSV(ctx context.Context, r io.Reader, c Creator, logger zerolog.Logger) (Result, error) {
	var res Result

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("read header: %w", err)
	}
	cols, err := parseHeader(header)
	if err != nil {
		return res, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("read record: %w", err)
		}
		line, _ := cr.FieldPos(0)

		in := domain.Opinion{
			Title:   field(rec, cols.title),
			Text:    field(rec, cols.text),
			Source:  optional(rec, cols.source),
			AddedBy: optional(rec, cols.addedBy),
		}
		_, err = c.Create(ctx, in)
		switch {
		case err == nil:
			res.Loaded++
		case errors.Is(err, services.ErrDuplicateText):
			res.Duplicates++
			logger.Warn().Int("line", line).Str("title", in.Title).Msg("skipping duplicate opinion")
		case errors.Is(err, services.ErrMissingFields):
			res.Invalid++
			logger.Warn().Int("line", line).Msg("skipping row without title or text")
		default:
			return res, fmt.Errorf("line %d: %w", line, err)
		}
	}
}
