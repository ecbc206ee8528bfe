package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseMoney parses a currency-formatted value like "£1,234.50" or "$12".
// Currency symbols and thousands separators are stripped before parsing.
// Callers default to zero on error and log the defaulting; a malformed cell
// is never fatal.
func ParseMoney(s string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-':
			return r
		default:
			return -1
		}
	}, strings.TrimSpace(s))

	if cleaned == "" {
		return 0, fmt.Errorf("no numeric content in %q", s)
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return v, nil
}
