package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

var ErrInvalidColumnName = errors.New("invalid column name")

type (
	// Adapter is an object which allows to connect to a query engine via url
	Adapter interface {
		Connect(url string) (Driver, error)
	}

	// Driver is an interface for a specific engine driver
	Driver interface {
		Query(context.Context, string) (ResultStream, error)
		Close()
	}

	// VersionReporter is an optional interface for drivers that can ask the
	// server for its version without running a query.
	VersionReporter interface {
		Version(context.Context) (string, error)
	}

	// RangeQuerier is an optional interface for drivers that can build a
	// numeric range relation natively instead of through sql.
	// The result has a single column with values 0 ... n-1 in ascending order.
	RangeQuerier interface {
		Range(ctx context.Context, n int64, column string) (ResultStream, error)
	}
)

type ConnectionID string

type Connection struct {
	params *ConnectionParams
	driver Driver
}

func NewConnection(params *ConnectionParams, adapter Adapter) (*Connection, error) {
	expanded := params.Expand()

	if expanded.ID == "" {
		expanded.ID = ConnectionID(uuid.New().String())
	}

	driver, err := adapter.Connect(expanded.URL)
	if err != nil {
		return nil, fmt.Errorf("adapter.Connect: %w", err)
	}

	c := &Connection{
		params: expanded,
		driver: driver,
	}

	return c, nil
}

func (c *Connection) GetID() ConnectionID {
	return c.params.ID
}

func (c *Connection) GetType() string {
	return c.params.Type
}

// Version returns the version string reported by the server.
// Drivers without a native version call are asked through sql.
func (c *Connection) Version(ctx context.Context) (string, error) {
	reporter, ok := c.driver.(VersionReporter)
	if ok {
		version, err := reporter.Version(ctx)
		if err != nil {
			return "", fmt.Errorf("reporter.Version: %w", err)
		}
		return version, nil
	}

	stream, err := c.driver.Query(ctx, "SELECT version()")
	if err != nil {
		return "", fmt.Errorf("driver.Query: %w", err)
	}
	defer stream.Close()

	if !stream.HasNext() {
		return "", errors.New("server returned no version")
	}
	row, err := stream.Next()
	if err != nil {
		return "", fmt.Errorf("stream.Next: %w", err)
	}
	if len(row) < 1 {
		return "", errors.New("server returned an empty version row")
	}

	return fmt.Sprint(row[0]), nil
}

// Execute runs a query asynchronously. The returned call reports its
// progress through onEvent and closes Done() when finished.
func (c *Connection) Execute(ctx context.Context, query string, onEvent func(CallState, *Call)) *Call {
	exec := func(ctx context.Context) (ResultStream, error) {
		return c.driver.Query(ctx, query)
	}

	return newCallFromExecutor(ctx, exec, query, onEvent)
}

var columnNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ExecuteRange runs a range query of length n with a single column named column.
func (c *Connection) ExecuteRange(ctx context.Context, n int64, column string, onEvent func(CallState, *Call)) *Call {
	query := rangeQuery(n, column)

	exec := func(ctx context.Context) (ResultStream, error) {
		if n < 0 {
			return nil, fmt.Errorf("invalid range length: %d", n)
		}
		if !columnNamePattern.MatchString(column) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidColumnName, column)
		}

		querier, ok := c.driver.(RangeQuerier)
		if ok {
			return querier.Range(ctx, n, column)
		}

		return c.driver.Query(ctx, query)
	}

	return newCallFromExecutor(ctx, exec, query, onEvent)
}

// rangeQuery is the sql equivalent of a native range relation.
func rangeQuery(n int64, column string) string {
	return fmt.Sprintf("SELECT id AS %s FROM range(%d)", column, n)
}

func (c *Connection) Close() {
	c.driver.Close()
}
