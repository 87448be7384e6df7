package mock

import (
	"context"
)

type adapterConfig struct {
	querySideEffects map[string]func(context.Context) error
	connectErr       error
	version          string
	versionErr       error
	nativeRange      bool

	resultStreamOptions []ResultStreamOption
}

type AdapterOption func(*adapterConfig)

func AdapterWithQuerySideEffect(query string, sideEffect func(context.Context) error) AdapterOption {
	return func(c *adapterConfig) {
		_, ok := c.querySideEffects[query]
		if ok {
			panic("side effect already registered for query: " + query)
		}

		c.querySideEffects[query] = sideEffect
	}
}

// AdapterWithConnectError makes every Connect call fail with err.
func AdapterWithConnectError(err error) AdapterOption {
	return func(c *adapterConfig) {
		c.connectErr = err
	}
}

// AdapterWithVersion makes drivers implement core.VersionReporter.
func AdapterWithVersion(version string, err error) AdapterOption {
	return func(c *adapterConfig) {
		c.version = version
		c.versionErr = err
	}
}

// AdapterWithNativeRange makes drivers implement core.RangeQuerier.
// Without it, range queries go through Query with the sql fallback.
func AdapterWithNativeRange() AdapterOption {
	return func(c *adapterConfig) {
		c.nativeRange = true
	}
}

func AdapterWithResultStreamOpts(opts ...ResultStreamOption) AdapterOption {
	return func(c *adapterConfig) {
		c.resultStreamOptions = append(c.resultStreamOptions, opts...)
	}
}
