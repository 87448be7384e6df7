package builders

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kndndrj/sailcheck/core"
)

// Client runs queries through database/sql for sql based drivers.
type Client struct {
	db             *sql.DB
	typeProcessors map[string]func(any) any
}

type clientConfig struct {
	typeProcessors map[string]func(any) any
}

type ClientOption func(*clientConfig)

// WithCustomTypeProcessor converts every value of the database type name
// typ (case insensitive) with fn. The first processor for a type wins.
func WithCustomTypeProcessor(typ string, fn func(any) any) ClientOption {
	return func(cc *clientConfig) {
		t := strings.ToLower(typ)
		if _, ok := cc.typeProcessors[t]; !ok {
			cc.typeProcessors[t] = fn
		}
	}
}

func NewClient(db *sql.DB, opts ...ClientOption) *Client {
	config := clientConfig{
		typeProcessors: make(map[string]func(any) any),
	}
	for _, opt := range opts {
		opt(&config)
	}

	return &Client{
		db:             db,
		typeProcessors: config.typeProcessors,
	}
}

func (c *Client) Close() {
	_ = c.db.Close()
}

func (c *Client) getTypeProcessor(typ string) func(any) any {
	proc, ok := c.typeProcessors[strings.ToLower(typ)]
	if ok {
		return proc
	}

	return func(val any) any {
		valb, ok := val.([]byte)
		if ok {
			return string(valb)
		}
		return val
	}
}

// Query executes a query and returns a result stream. Rows are scanned
// lazily while the stream is drained.
func (c *Client) Query(ctx context.Context, query string) (*ResultStream, error) {
	dbRows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	header, err := dbRows.Columns()
	if err != nil {
		_ = dbRows.Close()
		return nil, err
	}

	dbCols, err := dbRows.ColumnTypes()
	if err != nil {
		_ = dbRows.Close()
		return nil, err
	}

	processors := make([]func(any) any, len(dbCols))
	for i := range dbCols {
		processors[i] = c.getTypeProcessor(dbCols[i].DatabaseTypeName())
	}

	// rows.Next advances the cursor, so it is called once per row and
	// remembered until the row is scanned
	var rowsErr error
	advanced, has := false, false
	hasNextFunc := func() bool {
		if !advanced {
			has = dbRows.Next()
			advanced = true
			if !has {
				rowsErr = dbRows.Err()
			}
		}
		return has || rowsErr != nil
	}

	nextFunc := func() (core.Row, error) {
		if !hasNextFunc() {
			return nil, ErrNoNextRow
		}
		if !has {
			err := rowsErr
			rowsErr = nil
			return nil, err
		}
		advanced = false

		columns := make([]any, len(dbCols))
		columnPointers := make([]any, len(dbCols))
		for i := range columns {
			columnPointers[i] = &columns[i]
		}

		if err := dbRows.Scan(columnPointers...); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		row := make(core.Row, len(dbCols))
		for i := range dbCols {
			row[i] = processors[i](columns[i])
		}

		return row, nil
	}

	rows := NewResultStreamBuilder().
		WithNextFunc(nextFunc, hasNextFunc).
		WithHeader(header).
		WithCloseFunc(func() {
			_ = dbRows.Close()
		}).
		Build()

	return rows, nil
}
