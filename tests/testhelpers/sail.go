package testhelpers

import (
	"context"
	"errors"
	"os"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kndndrj/sailcheck/adapters"
	"github.com/kndndrj/sailcheck/core"
)

const (
	// SailImageEnv names the variable holding the sail image to test against.
	SailImageEnv = "SAIL_TEST_IMAGE"

	sailPort = "50051/tcp"
)

// ErrNoSailImage is returned when SailImageEnv is not set.
var ErrNoSailImage = errors.New(SailImageEnv + " is not set")

type SailContainer struct {
	tc.Container
	ConnURL string
	Driver  *core.Connection
}

// NewSailContainer starts a sail spark connect server from the image in
// $SAIL_TEST_IMAGE and connects to it. The params.URL is overwritten.
func NewSailContainer(ctx context.Context, params *core.ConnectionParams) (*SailContainer, error) {
	image := os.Getenv(SailImageEnv)
	if image == "" {
		return nil, ErrNoSailImage
	}

	ctr, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{sailPort},
			Cmd:          []string{"spark", "server", "--ip", "0.0.0.0", "--port", "50051"},
			WaitingFor:   wait.ForListeningPort(sailPort),
		},
		ProviderType: GetContainerProvider(),
		Started:      true,
	})
	if err != nil {
		return nil, err
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		return nil, err
	}
	port, err := ctr.MappedPort(ctx, sailPort)
	if err != nil {
		return nil, err
	}
	connURL := "sc://" + host + ":" + port.Port()

	if params.Type == "" {
		params.Type = "sail"
	}
	params.URL = connURL

	driver, err := adapters.NewConnection(params)
	if err != nil {
		return nil, err
	}

	return &SailContainer{
		Container: ctr,
		ConnURL:   connURL,
		Driver:    driver,
	}, nil
}

// NewDriver helper function to create a new driver with the connection URL.
func (s *SailContainer) NewDriver(params *core.ConnectionParams) (*core.Connection, error) {
	if params.URL == "" {
		params.URL = s.ConnURL
	}
	if params.Type == "" {
		params.Type = "sail"
	}

	return adapters.NewConnection(params)
}
