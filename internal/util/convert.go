package util

import (
	"database/sql"
	"strconv"
)

// ToInt64 coerces a dynamically typed attribute value to int64.
// Handles the types that show up in attribute bags and database scans;
// returns 0 for nil or anything unsupported.
func ToInt64(v any) int64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	case sql.NullInt64:
		if n.Valid {
			return n.Int64
		}
		return 0
	case sql.NullFloat64:
		if n.Valid {
			return int64(n.Float64)
		}
		return 0
	default:
		return 0
	}
}

// ToFloat64 coerces a dynamically typed attribute value to float64.
// Returns 0 for nil or anything unsupported.
func ToFloat64(v any) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	case sql.NullFloat64:
		if n.Valid {
			return n.Float64
		}
		return 0
	case sql.NullInt64:
		if n.Valid {
			return float64(n.Int64)
		}
		return 0
	default:
		return 0
	}
}

// NullString converts a string to sql.NullString, treating "" as null.
func NullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// NullFloat64 converts a *float64 to sql.NullFloat64, nil as null.
func NullFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
