package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order. Values without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"02-01-2006",
}

// isBlank reports whether a cell stands for NULL: empty after trimming, or
// the NaN marker spreadsheet exports write for empty cells.
func isBlank(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "NaN", "nan":
		return true
	}
	return false
}

func transformString(s string) (any, error) {
	if isBlank(s) {
		return nil, nil
	}
	return strings.TrimSpace(s), nil
}

// transformInt accepts integers and integer-valued decimals such as "5000.0".
func transformInt(s string) (any, error) {
	if isBlank(s) {
		return nil, nil
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%q is not an integer", s)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, fmt.Errorf("%q is out of range", s)
	}
	return int64(f), nil
}

// transformBool returns 1 or 0 so flags store the same on every dialect.
func transformBool(s string) (any, error) {
	if isBlank(s) {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "1.0", "true", "t", "yes", "y":
		return int64(1), nil
	case "0", "0.0", "false", "f", "no", "n":
		return int64(0), nil
	default:
		return nil, fmt.Errorf("%q is not a 0/1 flag", s)
	}
}

func transformDate(s string) (any, error) {
	if isBlank(s) {
		return nil, nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return nil, fmt.Errorf("%q is not a recognised date", s)
}

func transformFor(kind ColumnKind) func(string) (any, error) {
	switch kind {
	case KindInt:
		return transformInt
	case KindFlag:
		return transformBool
	case KindTimestamp:
		return transformDate
	default:
		return transformString
	}
}
