package format

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kndndrj/sailcheck/core"
)

var _ core.Formatter = (*JSON)(nil)

// JSON formats rows as an indented json array with one object per row.
// Keys keep the column order of the result.
type JSON struct{}

func NewJSON() *JSON {
	return &JSON{}
}

func (jf *JSON) Format(header core.Header, rows []core.Row, _ *core.FormatterOptions) ([]byte, error) {
	records := make([]json.RawMessage, 0, len(rows))
	for i, row := range rows {
		record, err := jf.record(header, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		records = append(records, record)
	}

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json.MarshalIndent: %w", err)
	}

	return out, nil
}

// record encodes a row as an object, writing the keys by hand since maps
// don't keep their order.
func (jf *JSON) record(header core.Header, row core.Row) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, val := range row {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(columnName(header, i))
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", columnName(header, i), err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
