package builders_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kndndrj/sailcheck/core"
	"github.com/kndndrj/sailcheck/core/builders"
)

func drain(t *testing.T, next func() (core.Row, error), hasNext func() bool) ([]core.Row, error) {
	t.Helper()

	var rows []core.Row
	for hasNext() {
		row, err := next()
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func TestNextBatches(t *testing.T) {
	testCases := []struct {
		name         string
		batches      [][]core.Row
		failAfter    int
		expectedRows []core.Row
		expectedErr  bool
	}{
		{
			name:         "single batch",
			batches:      [][]core.Row{{{0}, {1}, {2}}},
			failAfter:    -1,
			expectedRows: []core.Row{{0}, {1}, {2}},
		},
		{
			name:         "batches keep order and skip empty ones",
			batches:      [][]core.Row{{{0}, {1}}, {}, {{2}}, nil, {{3}, {4}}},
			failAfter:    -1,
			expectedRows: []core.Row{{0}, {1}, {2}, {3}, {4}},
		},
		{
			name:      "no batches",
			failAfter: -1,
		},
		{
			name:         "error after first batch",
			batches:      [][]core.Row{{{0}, {1}}, {{2}}},
			failAfter:    1,
			expectedRows: []core.Row{{0}, {1}},
			expectedErr:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := require.New(t)

			fetched := 0
			next, hasNext := builders.NextBatches(func() ([]core.Row, error) {
				if fetched == tc.failAfter {
					return nil, errors.New("batch failed")
				}
				if fetched >= len(tc.batches) {
					return nil, io.EOF
				}
				b := tc.batches[fetched]
				fetched++
				return b, nil
			})

			rows, err := drain(t, next, hasNext)
			if tc.expectedErr {
				r.EqualError(err, "batch failed")
			} else {
				r.NoError(err)
			}
			r.Equal(tc.expectedRows, rows)
			r.False(hasNext())
		})
	}
}
