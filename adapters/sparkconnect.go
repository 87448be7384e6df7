package adapters

import (
	"context"
	"fmt"

	"github.com/kndndrj/sailcheck/core"
	"github.com/kndndrj/sailcheck/internal/sparkconnect"
)

// Register client
func init() {
	_ = register(NewSparkConnect(), "sc", "sparkconnect", "spark-connect", "sail")
}

var _ core.Adapter = (*SparkConnect)(nil)

// SparkConnect connects to servers speaking the spark connect protocol,
// such as Sail or a spark connect server.
type SparkConnect struct {
	opts []sparkconnect.Option
}

// NewSparkConnect returns an adapter which passes opts to every session.
func NewSparkConnect(opts ...sparkconnect.Option) *SparkConnect {
	return &SparkConnect{opts: opts}
}

// WithOptions returns a copy of the adapter with opts appended.
func (s *SparkConnect) WithOptions(opts ...sparkconnect.Option) *SparkConnect {
	merged := append(append([]sparkconnect.Option(nil), s.opts...), opts...)
	return &SparkConnect{opts: merged}
}

// Connect parses the connectionURL and returns a new core.Driver
// connectionURL is a spark connect connection string in the format of:
//
// sc://host[:port][/;param=value;...]
//
// The grpc connection is established lazily by the first call.
func (s *SparkConnect) Connect(connectionURL string) (core.Driver, error) {
	remote, err := sparkconnect.ParseRemote(connectionURL)
	if err != nil {
		return nil, err
	}

	session, err := sparkconnect.Connect(context.Background(), remote, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("sparkconnect.Connect: %w", err)
	}

	return &sparkConnectDriver{
		session: session,
		log:     session.Logger(),
	}, nil
}
