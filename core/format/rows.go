package format

import (
	"fmt"
	"strings"

	"github.com/kndndrj/sailcheck/core"
)

var _ core.Formatter = (*Rows)(nil)

// Rows formats every row on its own line in the form of
//
//	<prefix>Row(<column>=<value>, ...)
//
// which is how dataframe clients print collected rows.
type Rows struct {
	prefix string
}

func NewRows(prefix string) *Rows {
	return &Rows{prefix: prefix}
}

func (rf *Rows) Format(header core.Header, rows []core.Row, _ *core.FormatterOptions) ([]byte, error) {
	var sb strings.Builder

	for _, row := range rows {
		fields := make([]string, len(row))
		for i, val := range row {
			fields[i] = fmt.Sprintf("%s=%s", columnName(header, i), reprValue(val))
		}

		sb.WriteString(rf.prefix)
		sb.WriteString("Row(")
		sb.WriteString(strings.Join(fields, ", "))
		sb.WriteString(")\n")
	}

	return []byte(sb.String()), nil
}

// reprValue quotes strings so they can be told apart from numbers.
func reprValue(val any) string {
	switch v := val.(type) {
	case nil:
		return "None"
	case string:
		return "'" + v + "'"
	case bool:
		if v {
			return "True"
		}
		return "False"
	default:
		return valueString(v)
	}
}
