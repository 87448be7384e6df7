package mock

import (
	"time"

	"github.com/kndndrj/sailcheck/core"
)

type resultStreamConfig struct {
	nextSleep time.Duration
	meta      *core.Meta
	header    core.Header
	failAt    int
	failErr   error
}

type ResultStreamOption func(*resultStreamConfig)

// ResultStreamWithNextSleep delays every Next call by s.
func ResultStreamWithNextSleep(s time.Duration) ResultStreamOption {
	return func(c *resultStreamConfig) {
		c.nextSleep = s
	}
}

// ResultStreamWithReportedRows overrides the row count in Meta.
func ResultStreamWithReportedRows(n int64) ResultStreamOption {
	return func(c *resultStreamConfig) {
		c.meta = &core.Meta{ReportedRows: n}
	}
}

// ResultStreamWithHeader replaces the generated header_<i> column names.
func ResultStreamWithHeader(header core.Header) ResultStreamOption {
	return func(c *resultStreamConfig) {
		c.header = header
	}
}

// ResultStreamWithNextError makes the index-th call to Next fail with err.
func ResultStreamWithNextError(index int, err error) ResultStreamOption {
	return func(c *resultStreamConfig) {
		c.failAt = index
		c.failErr = err
	}
}
