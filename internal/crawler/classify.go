package crawler

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// tableKind is the four-way classification of one report node. "No table at
// all" and "table with only the no-results marker" both terminate a branch,
// but they are different outcomes: the marker is evidence the category is
// empty, silence is not evidence of anything.
type tableKind int

const (
	kindNone tableKind = iota
	kindEmpty
	kindLeaf
	kindCategory
)

func (k tableKind) String() string {
	switch k {
	case kindEmpty:
		return "empty"
	case kindLeaf:
		return "leaf"
	case kindCategory:
		return "category"
	default:
		return "none"
	}
}

const emptyMarker = "no results"

type childLink struct {
	Name string
	URL  string
}

type tableInfo struct {
	kind     tableKind
	rows     [][]string  // populated for kindLeaf
	children []childLink // populated for kindCategory
}

// classifyTable inspects the extracted report table HTML and produces the
// node classification plus whatever data the branch needs. Leaf tables carry
// a "Barserial" header column; category tables carry links to child
// categories instead.
func classifyTable(html, baseURL string) (*tableInfo, error) {
	if strings.TrimSpace(html) == "" {
		return &tableInfo{kind: kindNone}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse table HTML: %w", err)
	}

	headers := make([]string, 0, 8)
	doc.Find("thead th").Each(func(i int, th *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(th.Text()))
	})

	if len(headers) == 0 {
		if strings.Contains(strings.ToLower(doc.Text()), emptyMarker) {
			return &tableInfo{kind: kindEmpty}, nil
		}
		return &tableInfo{kind: kindNone}, nil
	}

	if hasBarserialHeader(headers) {
		return &tableInfo{kind: kindLeaf, rows: extractRows(doc)}, nil
	}

	return &tableInfo{kind: kindCategory, children: extractChildren(doc, baseURL)}, nil
}

func hasBarserialHeader(headers []string) bool {
	for _, h := range headers {
		if strings.EqualFold(h, "Barserial") {
			return true
		}
	}
	return false
}

func extractRows(doc *goquery.Document) [][]string {
	var rows [][]string
	doc.Find("tbody tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}
		row := make([]string, 0, cells.Length())
		cells.Each(func(j int, td *goquery.Selection) {
			row = append(row, strings.TrimSpace(td.Text()))
		})
		rows = append(rows, row)
	})
	return rows
}

// extractChildren reads child category links in rendered order. Order is
// preserved as-is: the crawl is pre-order over exactly what the page shows,
// with no re-ordering and no deduplication by name.
func extractChildren(doc *goquery.Document, baseURL string) []childLink {
	var children []childLink
	doc.Find("tbody tr td a").Each(func(i int, a *goquery.Selection) {
		href, exists := a.Attr("href")
		name := strings.TrimSpace(a.Text())
		if !exists || name == "" {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = baseURL + href
		}
		children = append(children, childLink{Name: name, URL: href})
	})
	return children
}
