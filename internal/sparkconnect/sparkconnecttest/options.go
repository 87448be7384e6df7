package sparkconnecttest

import (
	"net"
)

type serverConfig struct {
	listener             net.Listener
	version              string
	token                string
	batchSize            int
	analyzeErr           error
	executeErr           error
	failAfterBatches     int
	failErr              error
	releaseUnimplemented bool
	releaseErr           error
	blockExecute         bool
	omitResultComplete   bool
	responseSessionID    string
	rowCountSkew         int64
}

type Option func(*serverConfig)

// WithListener serves on lis instead of an in-memory listener.
func WithListener(lis net.Listener) Option {
	return func(c *serverConfig) {
		c.listener = lis
	}
}

// WithVersion sets the reported spark version.
func WithVersion(version string) Option {
	return func(c *serverConfig) {
		c.version = version
	}
}

// WithToken requires every request to carry the bearer token.
func WithToken(token string) Option {
	return func(c *serverConfig) {
		c.token = token
	}
}

// WithBatchSize splits results into arrow batches of at most n rows.
func WithBatchSize(n int) Option {
	return func(c *serverConfig) {
		c.batchSize = n
	}
}

// WithAnalyzeError makes AnalyzePlan fail with err.
func WithAnalyzeError(err error) Option {
	return func(c *serverConfig) {
		c.analyzeErr = err
	}
}

// WithExecuteError makes ExecutePlan fail with err before sending anything.
func WithExecuteError(err error) Option {
	return func(c *serverConfig) {
		c.executeErr = err
	}
}

// WithFailAfterBatches makes ExecutePlan fail with err after n batches.
func WithFailAfterBatches(n int, err error) Option {
	return func(c *serverConfig) {
		c.failAfterBatches = n
		c.failErr = err
	}
}

// WithoutReleaseSession answers ReleaseSession with Unimplemented, like
// older servers do.
func WithoutReleaseSession() Option {
	return func(c *serverConfig) {
		c.releaseUnimplemented = true
	}
}

// WithReleaseError makes ReleaseSession fail with err.
func WithReleaseError(err error) Option {
	return func(c *serverConfig) {
		c.releaseErr = err
	}
}

// WithBlockingExecute makes ExecutePlan hang until the client gives up.
func WithBlockingExecute() Option {
	return func(c *serverConfig) {
		c.blockExecute = true
	}
}

// WithoutResultComplete ends the ExecutePlan stream without the
// result_complete message.
func WithoutResultComplete() Option {
	return func(c *serverConfig) {
		c.omitResultComplete = true
	}
}

// WithResponseSessionID answers with a fixed session id instead of the
// requested one.
func WithResponseSessionID(id string) Option {
	return func(c *serverConfig) {
		c.responseSessionID = id
	}
}

// WithRowCountSkew adds skew to the row count announced in every batch.
func WithRowCountSkew(skew int64) Option {
	return func(c *serverConfig) {
		c.rowCountSkew = skew
	}
}
