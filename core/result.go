package core

import (
	"fmt"
	"sync"
	"time"
)

var ErrInvalidRange = func(from, to int) error { return fmt.Errorf("invalid selection range: %d ... %d", from, to) }

// drainTimeout bounds how long a reader waits for rows that are not there yet.
const drainTimeout = 5 * time.Minute

// Result is the materialized form of the ResultStream iterator
type Result struct {
	header Header
	meta   *Meta
	rows   []Row

	isDrained bool
	isFilled  bool
	// changed is closed and replaced every time rows are appended or the
	// result is drained
	changed chan struct{}

	writeMutex sync.Mutex
	readMutex  sync.RWMutex
}

// notify wakes up readers waiting in getRows. Must hold readMutex.
func (cr *Result) notify() {
	if cr.changed != nil {
		close(cr.changed)
	}
	cr.changed = make(chan struct{})
}

// SetIter drains the ResultStream iterator into result.
// This can be done only once!
func (cr *Result) SetIter(iter ResultStream, onFillStart func()) error {
	// lock write mutex
	cr.writeMutex.Lock()
	defer cr.writeMutex.Unlock()

	// close iterator on return
	defer iter.Close()

	cr.readMutex.Lock()
	cr.header = iter.Header()
	cr.meta = iter.Meta()
	if cr.meta == nil {
		cr.meta = &Meta{ReportedRows: -1}
	}
	cr.rows = make([]Row, 0)
	cr.isDrained = false
	cr.isFilled = true
	cr.notify()
	cr.readMutex.Unlock()

	defer func() {
		cr.readMutex.Lock()
		cr.isDrained = true
		cr.notify()
		cr.readMutex.Unlock()
	}()

	// trigger callback
	if onFillStart != nil {
		onFillStart()
	}

	// drain the iterator
	for iter.HasNext() {
		row, err := iter.Next()
		if err != nil {
			cr.readMutex.Lock()
			cr.isFilled = false
			cr.readMutex.Unlock()
			return err
		}

		cr.readMutex.Lock()
		cr.rows = append(cr.rows, row)
		cr.notify()
		cr.readMutex.Unlock()
	}

	return nil
}

// Format formats the selected rows with the given formatter.
func (cr *Result) Format(formatter Formatter, from, to int) ([]byte, error) {
	rows, fromAdjusted, _, err := cr.getRows(from, to)
	if err != nil {
		return nil, fmt.Errorf("cr.getRows: %w", err)
	}

	opts := &FormatterOptions{
		ChunkStart: fromAdjusted,
	}

	f, err := formatter.Format(cr.Header(), rows, opts)
	if err != nil {
		return nil, fmt.Errorf("formatter.Format: %w", err)
	}

	return f, nil
}

func (cr *Result) Len() int {
	cr.readMutex.RLock()
	defer cr.readMutex.RUnlock()
	return len(cr.rows)
}

func (cr *Result) IsEmpty() bool {
	cr.readMutex.RLock()
	defer cr.readMutex.RUnlock()
	return !cr.isFilled
}

func (cr *Result) Header() Header {
	cr.readMutex.RLock()
	defer cr.readMutex.RUnlock()
	return cr.header
}

func (cr *Result) Meta() *Meta {
	cr.readMutex.RLock()
	defer cr.readMutex.RUnlock()
	if cr.meta == nil {
		return &Meta{ReportedRows: -1}
	}
	return cr.meta
}

// Rows returns rows in range from ... to. Negative values count from the end,
// so Rows(0, -1) returns all rows once the result is drained.
func (cr *Result) Rows(from, to int) ([]Row, error) {
	rows, _, _, err := cr.getRows(from, to)
	return rows, err
}

// getRows returns the row range and adjusted from-to values
func (cr *Result) getRows(from, to int) (rows []Row, rangeFrom, rangeTo int, err error) {
	// validation
	if (from < 0 && to < 0) || (from >= 0 && to >= 0) {
		if from > to {
			return nil, 0, 0, ErrInvalidRange(from, to)
		}
	}
	// undefined -> error
	if from < 0 && to >= 0 {
		return nil, 0, 0, ErrInvalidRange(from, to)
	}

	timeout := time.NewTimer(drainTimeout)
	defer timeout.Stop()

	cr.readMutex.RLock()
	// wait for drain or available index
	for !cr.isDrained && (to < 0 || to > len(cr.rows)) {
		changed := cr.changed
		cr.readMutex.RUnlock()

		if changed == nil {
			return nil, 0, 0, ErrCallNotFinished
		}

		select {
		case <-changed:
		case <-timeout.C:
			return nil, 0, 0, fmt.Errorf("result draining timeout exceeded: %s", drainTimeout)
		}

		cr.readMutex.RLock()
	}
	defer cr.readMutex.RUnlock()

	// calculate range
	length := len(cr.rows)
	if from < 0 {
		from += length + 1
		if from < 0 {
			from = 0
		}
	}
	if to < 0 {
		to += length + 1
		if to < 0 {
			to = 0
		}
	}

	if from > length {
		from = length
	}
	if to > length {
		to = length
	}

	return cr.rows[from:to], from, to, nil
}
