package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/allendavis-developer/cg-stock-take/internal/domain"

	log "github.com/sirupsen/logrus"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// SanitizeName collapses every run of non-alphanumeric characters to a
// single underscore, matching the filenames the legacy exports used.
func SanitizeName(name string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(name, "_"), "_")
}

// Writer emits one CSV table per top-level category.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteCategory derives the schema from the record set, pads every path to
// the observed maximum depth, and writes header plus one row per record. The
// write is atomic: content goes to a temp file in the target directory,
// which then replaces the final path in one rename, so a reader never sees a
// partial table.
func (w *Writer) WriteCategory(category string, records []domain.LeafRecord) (string, error) {
	depth := domain.MaxDepth(records)

	header := make([]string, 0, depth+len(domain.LeafColumns))
	for i := 1; i <= depth; i++ {
		header = append(header, fmt.Sprintf("Category Level %d", i))
	}
	header = append(header, domain.LeafColumns...)

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	name := SanitizeName(category)
	if name == "" {
		// An all-symbol category would otherwise produce a hidden ".csv" file.
		name = "category"
	}
	final := filepath.Join(w.dir, name+".csv")

	tmp, err := os.CreateTemp(w.dir, "."+name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp table file: %w", err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.Write(header); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(paddedRow(r, depth)); err != nil {
			tmp.Close()
			return "", fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("flush table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp table file: %w", err)
	}

	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("replace table file: %w", err)
	}

	log.Infof("Wrote %d rows to %s", len(records), final)
	return final, nil
}

// paddedRow right-pads the path with empty strings to depth, then appends
// the leaf cells. No truncation: depth is the observed maximum, so every
// path fits.
func paddedRow(r domain.LeafRecord, depth int) []string {
	row := make([]string, 0, depth+len(r.Cells))
	row = append(row, r.Path...)
	for i := len(r.Path); i < depth; i++ {
		row = append(row, "")
	}
	return append(row, r.Cells...)
}
