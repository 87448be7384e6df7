// Package format contains formatters which turn materialized rows into
// printable output.
package format

import (
	"errors"
	"fmt"
	"time"

	"github.com/kndndrj/sailcheck/core"
)

// ErrUnknownFormat is returned from New for unsupported format names.
var ErrUnknownFormat = errors.New("unknown output format")

// Names lists the supported format names.
var Names = []string{"rows", "table", "json", "csv"}

// New returns a formatter by name. rowPrefix is only used by the rows formatter.
func New(name, rowPrefix string) (core.Formatter, error) {
	switch name {
	case "", "rows":
		return NewRows(rowPrefix), nil
	case "table":
		return NewTable(), nil
	case "json":
		return NewJSON(), nil
	case "csv":
		return NewCSV(), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %v)", ErrUnknownFormat, name, Names)
	}
}

func columnName(header core.Header, i int) string {
	if i < len(header) {
		return header[i]
	}
	return fmt.Sprintf("<unknown-field-%d>", i)
}

func valueString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
