package builders

import (
	"errors"
	"io"

	"github.com/kndndrj/sailcheck/core"
)

var ErrNoNextRow = errors.New("no next row")

// NextRows creates next and hasNext functions from provided values, where
// toRow converts a single value to a (possibly multi column) row.
func NextRows[T any](values []T, toRow func(T) core.Row) (func() (core.Row, error), func() bool) {
	index := 0

	hasNext := func() bool {
		return index < len(values)
	}

	// iterator functions
	next := func() (core.Row, error) {
		if !hasNext() {
			return nil, ErrNoNextRow
		}

		row := toRow(values[index])
		index++
		return row, nil
	}

	return next, hasNext
}

// NextNil creates next and hasNext functions that don't return anything (no rows)
func NextNil() (func() (core.Row, error), func() bool) {
	hasNext := func() bool {
		return false
	}

	// iterator functions
	next := func() (core.Row, error) {
		return nil, ErrNoNextRow
	}

	return next, hasNext
}

// NextBatches creates next and hasNext functions which pull rows lazily in
// batches. fetch returns the next batch and io.EOF once there are no more
// batches. Empty batches are skipped. A fetch error other than io.EOF is
// returned from the following next call.
func NextBatches(fetch func() ([]core.Row, error)) (func() (core.Row, error), func() bool) {
	var (
		batch []core.Row
		index int
		done  bool
		err   error
	)

	// fill makes sure there is a row at index, an error, or done is set
	fill := func() {
		for !done && err == nil && index >= len(batch) {
			var b []core.Row
			b, err = fetch()
			if errors.Is(err, io.EOF) {
				err = nil
				done = true
				return
			}
			batch, index = b, 0
		}
	}

	hasNext := func() bool {
		fill()
		return err != nil || index < len(batch)
	}

	next := func() (core.Row, error) {
		fill()
		if err != nil {
			e := err
			// report the error once
			err = nil
			done = true
			return nil, e
		}
		if index >= len(batch) {
			return nil, ErrNoNextRow
		}

		row := batch[index]
		index++
		return row, nil
	}

	return next, hasNext
}
