package sparkconnect

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// ServiceName is the fully qualified grpc service name.
const ServiceName = "spark.connect.SparkConnectService"

// Full method names of the rpcs this client uses.
const (
	MethodExecutePlan    = "/" + ServiceName + "/ExecutePlan"
	MethodAnalyzePlan    = "/" + ServiceName + "/AnalyzePlan"
	MethodReleaseSession = "/" + ServiceName + "/ReleaseSession"
)

var _ encoding.Codec = Codec{}

// Codec marshals Message values. It registers under the "proto" name so the
// content-type on the wire stays application/grpc+proto.
type Codec struct{}

func (Codec) Name() string {
	return "proto"
}

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("sparkconnect codec: can not marshal %T", v)
	}
	return m.MarshalWire()
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("sparkconnect codec: can not unmarshal into %T", v)
	}
	return m.UnmarshalWire(data)
}
