package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/kndndrj/sailcheck/core"
)

var _ core.Driver = (*driver)(nil)

type driver struct {
	data    []core.Row
	config  *adapterConfig
	adapter *Adapter
}

func (d *driver) Query(ctx context.Context, query string) (core.ResultStream, error) {
	d.adapter.record(query)

	eff, ok := d.config.querySideEffects[query]
	if ok {
		err := eff(ctx)
		if err != nil {
			return nil, fmt.Errorf("side effect error: %w", err)
		}
	}

	return NewResultStream(d.data, d.config.resultStreamOptions...), nil
}

func (d *driver) Close() {
	d.adapter.mu.Lock()
	defer d.adapter.mu.Unlock()
	d.adapter.closed++
}

var _ core.VersionReporter = (*versionDriver)(nil)

type versionDriver struct {
	*driver
}

func (d *versionDriver) Version(context.Context) (string, error) {
	return d.config.version, d.config.versionErr
}

var _ core.RangeQuerier = (*rangeDriver)(nil)

type rangeDriver struct {
	*versionDriver
}

// Range ignores the adapter data and yields 0 ... n-1 under column.
func (d *rangeDriver) Range(ctx context.Context, n int64, column string) (core.ResultStream, error) {
	d.adapter.record(fmt.Sprintf("range(%d) as %s", n, column))

	var rows []core.Row
	for i := int64(0); i < n; i++ {
		rows = append(rows, core.Row{i})
	}

	opts := append([]ResultStreamOption{ResultStreamWithHeader(core.Header{column})}, d.config.resultStreamOptions...)
	return NewResultStream(rows, opts...), nil
}

var _ core.Adapter = (*Adapter)(nil)

// Adapter is a mocked adapter which serves the same data for every query.
type Adapter struct {
	data   []core.Row
	config *adapterConfig

	mu      sync.Mutex
	queries []string
	closed  int
}

func NewAdapter(data []core.Row, opts ...AdapterOption) *Adapter {
	config := &adapterConfig{
		querySideEffects: make(map[string]func(context.Context) error),

		resultStreamOptions: []ResultStreamOption{},
	}
	for _, opt := range opts {
		opt(config)
	}

	return &Adapter{
		data:   data,
		config: config,
	}
}

func (a *Adapter) Connect(_ string) (core.Driver, error) {
	if a.config.connectErr != nil {
		return nil, a.config.connectErr
	}

	d := &driver{
		data:    a.data,
		config:  a.config,
		adapter: a,
	}

	switch {
	case a.config.nativeRange:
		return &rangeDriver{versionDriver: &versionDriver{driver: d}}, nil
	case a.config.version != "" || a.config.versionErr != nil:
		return &versionDriver{driver: d}, nil
	default:
		return d, nil
	}
}

func (a *Adapter) record(query string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queries = append(a.queries, query)
}

// Queries returns every query received by drivers of this adapter.
func (a *Adapter) Queries() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.queries...)
}

// Closed returns how many drivers of this adapter were closed.
func (a *Adapter) Closed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}
