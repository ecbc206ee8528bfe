package sales

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/allendavis-developer/cg-stock-take/internal/domain"

	log "github.com/sirupsen/logrus"
)

// Row is one line-item from the sales input file: a barserial, how many were
// sold, and the total cost for the line.
type Row struct {
	Barserial string
	Quantity  int
	Cost      float64
}

// LoadRows reads the sales CSV. The header must carry Barserial, Quantity
// and Cost columns; a missing column or unreadable file is reported before
// any remote interaction happens. Malformed numeric cells inside rows are
// defaulted to zero with a warning, never fatal.
func LoadRows(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sales input: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read sales input: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sales input %s is empty", path)
	}

	cols, err := requiredColumns(records[0])
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) <= cols.barserial || len(record) <= cols.quantity || len(record) <= cols.cost {
			log.Warnf("Sales row %d is short (%d fields), skipping", i+2, len(record))
			continue
		}

		barserial := strings.TrimSpace(record[cols.barserial])

		qty, err := domain.ParseMoney(record[cols.quantity])
		if err != nil {
			log.Warnf("Sales row %d: unparseable quantity %q, defaulting to 0", i+2, record[cols.quantity])
			qty = 0
		}

		cost, err := domain.ParseMoney(record[cols.cost])
		if err != nil {
			log.Warnf("Sales row %d: unparseable cost %q, defaulting to 0", i+2, record[cols.cost])
			cost = 0
		}

		rows = append(rows, Row{Barserial: barserial, Quantity: int(qty), Cost: cost})
	}

	return rows, nil
}

type columnIndexes struct {
	barserial int
	quantity  int
	cost      int
}

func requiredColumns(header []string) (columnIndexes, error) {
	cols := columnIndexes{barserial: -1, quantity: -1, cost: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "barserial":
			cols.barserial = i
		case "quantity":
			cols.quantity = i
		case "cost":
			cols.cost = i
		}
	}

	missing := make([]string, 0, 3)
	if cols.barserial < 0 {
		missing = append(missing, "Barserial")
	}
	if cols.quantity < 0 {
		missing = append(missing, "Quantity")
	}
	if cols.cost < 0 {
		missing = append(missing, "Cost")
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("sales input missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}
