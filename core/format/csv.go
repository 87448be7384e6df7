package format

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/kndndrj/sailcheck/core"
)

var _ core.Formatter = (*CSV)(nil)

// CSV formats rows as csv. The header is written only for the first chunk
// of a result, so chunks can be concatenated.
type CSV struct{}

func NewCSV() *CSV {
	return &CSV{}
}

func (cf *CSV) Format(header core.Header, rows []core.Row, opts *core.FormatterOptions) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if opts == nil || opts.ChunkStart == 0 {
		if err := w.Write(header); err != nil {
			return nil, fmt.Errorf("w.Write: %w", err)
		}
	}

	record := make([]string, len(header))
	for _, row := range rows {
		if len(row) != len(record) {
			record = make([]string, len(row))
		}
		for i, val := range row {
			record[i] = valueString(val)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("w.Write: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("w.Flush: %w", err)
	}

	return buf.Bytes(), nil
}
