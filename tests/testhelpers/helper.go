// Package testhelpers provides helpers for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/kndndrj/sailcheck/core"
)

// eventTimeout is the maximum time to wait for a call to finish
const eventTimeout = 30 * time.Second

// GetContainerProvider returns the container provider type to use for the tests.
// If we detect podman is available, we use it, otherwise we use docker.
func GetContainerProvider() testcontainers.ProviderType {
	if _, err := exec.LookPath("podman"); err == nil {
		fmt.Println("Podman detected. Remember to set TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED=true;")
		return testcontainers.ProviderPodman
	}
	return testcontainers.ProviderDocker
}

// GetResult executes query on the connection and waits for the materialized
// result. It returns the rows, the header and all states the call went through.
func GetResult(t *testing.T, c *core.Connection, query string) ([]core.Row, core.Header, []core.CallState, error) {
	t.Helper()

	return waitForCall(t, func(ctx context.Context, onEvent func(core.CallState, *core.Call)) *core.Call {
		return c.Execute(ctx, query, onEvent)
	})
}

// GetRangeResult is GetResult for a range query.
func GetRangeResult(t *testing.T, c *core.Connection, n int64, column string) ([]core.Row, core.Header, []core.CallState, error) {
	t.Helper()

	return waitForCall(t, func(ctx context.Context, onEvent func(core.CallState, *core.Call)) *core.Call {
		return c.ExecuteRange(ctx, n, column, onEvent)
	})
}

func waitForCall(t *testing.T, start func(context.Context, func(core.CallState, *core.Call)) *core.Call) ([]core.Row, core.Header, []core.CallState, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	states := make(chan core.CallState, 8)
	call := start(ctx, func(state core.CallState, _ *core.Call) {
		states <- state
	})

	err := call.Wait(ctx)
	close(states)

	outStates := make([]core.CallState, 0)
	for s := range states {
		outStates = append(outStates, s)
	}
	if err != nil {
		return nil, nil, outStates, err
	}

	result, err := call.GetResult()
	require.NoError(t, err)

	rows, err := result.Rows(0, -1)
	require.NoError(t, err)

	return rows, result.Header(), outStates, nil
}
