package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/allendavis-developer/cg-stock-take/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Consoles", "Consoles"},
		{"Retro / Handheld", "Retro_Handheld"},
		{"  DVDs & Blu-ray!  ", "DVDs_Blu_ray"},
		{"£/£", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), tt.in)
	}
}

func cells(barserial string) []string {
	c := make([]string, len(domain.LeafColumns))
	c[0] = barserial
	return c
}

func TestWriteCategory(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	records := []domain.LeafRecord{
		{Path: domain.CategoryPath{"Consoles", "Retro", "Sega"}, Cells: cells("100001")},
		{Path: domain.CategoryPath{"Consoles", "Modern"}, Cells: cells("100002")},
		domain.EmptyLeafRecord(domain.CategoryPath{"Consoles"}),
	}

	path, err := w.WriteCategory("Consoles / Retro", records)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Consoles_Retro.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// Deepest path is 3, so 3 path columns plus the fixed leaf columns.
	header := rows[0]
	require.Len(t, header, 3+len(domain.LeafColumns))
	assert.Equal(t, "Category Level 1", header[0])
	assert.Equal(t, "Category Level 3", header[2])
	assert.Equal(t, "Barserial", header[3])
	assert.Equal(t, "Margin %", header[len(header)-1])

	// Full-depth path fills every path column.
	assert.Equal(t, []string{"Consoles", "Retro", "Sega"}, rows[1][:3])
	assert.Equal(t, "100001", rows[1][3])

	// Shallower paths are right-padded with blanks.
	assert.Equal(t, []string{"Consoles", "Modern", ""}, rows[2][:3])
	assert.Equal(t, []string{"Consoles", "", ""}, rows[3][:3])

	// The empty-category record carries blank leaf cells.
	for _, cell := range rows[3][3:] {
		assert.Empty(t, cell)
	}

	// Every row is rectangular.
	for i, row := range rows {
		assert.Len(t, row, len(header), "row %d", i)
	}
}

func TestWriteCategoryNoRecords(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	path, err := w.WriteCategory("Empty", nil)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.LeafColumns, rows[0])
}

func TestWriteCategoryAllSymbolName(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	path, err := w.WriteCategory("£/£", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "category.csv"), path)
}

func TestWriteCategoryLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	_, err := w.WriteCategory("Consoles", []domain.LeafRecord{
		{Path: domain.CategoryPath{"Consoles"}, Cells: cells("100001")},
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Consoles.csv", entries[0].Name())
}
