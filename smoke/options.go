package smoke

import (
	"time"

	"github.com/kndndrj/sailcheck/core"
	"github.com/kndndrj/sailcheck/logging"
)

type runnerConfig struct {
	remote     string
	typ        string
	rows       int64
	column     string
	sql        string
	output     string
	attempts   uint
	retryDelay time.Duration
	adapter    core.Adapter
	logger     logging.Logger
}

type Option func(*runnerConfig)

// WithRemote sets the connection string. It may contain {{ env "X" }}
// templates.
func WithRemote(remote string) Option {
	return func(c *runnerConfig) {
		c.remote = remote
	}
}

// WithType selects a registered adapter by type alias.
func WithType(typ string) Option {
	return func(c *runnerConfig) {
		c.typ = typ
	}
}

// WithAdapter uses adapter instead of a registered one.
func WithAdapter(adapter core.Adapter) Option {
	return func(c *runnerConfig) {
		c.adapter = adapter
	}
}

// WithRange sets the range length and the name of its column.
func WithRange(rows int64, column string) Option {
	return func(c *runnerConfig) {
		c.rows = rows
		c.column = column
	}
}

// WithSQL runs query instead of the range.
func WithSQL(query string) Option {
	return func(c *runnerConfig) {
		c.sql = query
	}
}

// WithOutput selects the row format by name.
func WithOutput(name string) Option {
	return func(c *runnerConfig) {
		c.output = name
	}
}

// WithAttempts retries connecting on connection errors. delay doubles
// after every attempt.
func WithAttempts(attempts uint, delay time.Duration) Option {
	return func(c *runnerConfig) {
		c.attempts = attempts
		c.retryDelay = delay
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(c *runnerConfig) {
		c.logger = logger
	}
}
