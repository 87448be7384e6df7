package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kndndrj/sailcheck/core"
	"github.com/kndndrj/sailcheck/core/builders"
)

var (
	_ core.Driver          = (*databricksDriver)(nil)
	_ core.VersionReporter = (*databricksDriver)(nil)
)

// databricksDriver runs spark sql on a warehouse. Range queries go through
// the sql fallback of core.Connection.
type databricksDriver struct {
	c *builders.Client
}

func (d *databricksDriver) Query(ctx context.Context, query string) (core.ResultStream, error) {
	return d.c.Query(ctx, query)
}

// Version reports the spark version of the warehouse. version() returns
// "<version> <git revision>", only the version is kept.
func (d *databricksDriver) Version(ctx context.Context) (string, error) {
	stream, err := d.c.Query(ctx, "SELECT version()")
	if err != nil {
		return "", fmt.Errorf("c.Query: %w", err)
	}
	defer stream.Close()

	if !stream.HasNext() {
		return "", errors.New("warehouse returned no version")
	}
	row, err := stream.Next()
	if err != nil {
		return "", fmt.Errorf("stream.Next: %w", err)
	}
	if len(row) < 1 {
		return "", errors.New("warehouse returned an empty version row")
	}

	fields := strings.Fields(fmt.Sprint(row[0]))
	if len(fields) == 0 {
		return "", errors.New("warehouse returned an empty version")
	}
	return fields[0], nil
}

func (d *databricksDriver) Close() {
	d.c.Close()
}
