package domain

import "strings"

// CategoryPath is the ordered chain of category names from the valuation
// report root down to the current node.
type CategoryPath []string

// Extend returns a new path with name appended. The receiver is never
// mutated: the crawl recursion branches, and siblings must not see each
// other's segments.
func (p CategoryPath) Extend(name string) CategoryPath {
	next := make(CategoryPath, len(p), len(p)+1)
	copy(next, p)
	return append(next, name)
}

func (p CategoryPath) String() string {
	return strings.Join(p, " > ")
}

// LeafColumns are the fixed columns that follow the path columns in every
// barcode-level valuation table.
var LeafColumns = []string{
	"Barserial", "Name", "Quantity", "Retail", "Cost", "VAT", "Net", "Total Margin", "Margin %",
}

// LeafRecord is one scraped barcode-level row tagged with the category path
// that produced it. Records are never mutated after creation.
type LeafRecord struct {
	Path  CategoryPath `json:"path"`
	Cells []string     `json:"cells"`
}

// EmptyLeafRecord marks a category that rendered the no-results marker: the
// path is kept, the leaf cells stay blank.
func EmptyLeafRecord(path CategoryPath) LeafRecord {
	return LeafRecord{Path: path, Cells: make([]string, len(LeafColumns))}
}

// MaxDepth returns the longest path length across records. The table schema
// is derived from this after the crawl completes, not tracked during it.
func MaxDepth(records []LeafRecord) int {
	depth := 0
	for _, r := range records {
		if len(r.Path) > depth {
			depth = len(r.Path)
		}
	}
	return depth
}
