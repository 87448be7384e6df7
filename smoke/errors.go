package smoke

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kndndrj/sailcheck/internal/sparkconnect"
)

// Kind classifies why a run failed.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConnection: the server could not be reached or the endpoint is invalid
	KindConnection
	// KindProtocol: the server answered with something the client does not understand
	KindProtocol
	// KindServerExecution: the server accepted the request but failed to run it
	KindServerExecution
	// KindAuthentication: the server rejected the credentials
	KindAuthentication
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindProtocol:
		return "protocol"
	case KindServerExecution:
		return "server execution"
	case KindAuthentication:
		return "authentication"
	default:
		return "unknown"
	}
}

// ExitCode is the process exit status for a failure of this kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindConnection:
		return 2
	case KindProtocol:
		return 3
	case KindServerExecution:
		return 4
	case KindAuthentication:
		return 5
	default:
		return 1
	}
}

// Stage is the step of the run which failed.
type Stage string

const (
	StageSetup   Stage = "setup"
	StageConnect Stage = "connect"
	StageVersion Stage = "version"
	StageQuery   Stage = "query"
	StageVerify  Stage = "verify"
	StageOutput  Stage = "output"
)

// Error is returned from Runner.Run when the check fails.
type Error struct {
	Kind  Kind
	Stage Stage
	Err   error
}

func newError(stage Stage, err error) *Error {
	var smokeErr *Error
	if errors.As(err, &smokeErr) {
		return smokeErr
	}

	return &Error{
		Kind:  Classify(err),
		Stage: stage,
		Err:   err,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error during %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit status for this error.
func (e *Error) ExitCode() int {
	return e.Kind.ExitCode()
}

// Classify maps an error from any layer to a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var smokeErr *Error
	if errors.As(err, &smokeErr) {
		return smokeErr.Kind
	}

	var protoErr *sparkconnect.ProtocolError
	if errors.As(err, &protoErr) {
		return KindProtocol
	}

	if errors.Is(err, sparkconnect.ErrInvalidRemote) {
		return KindConnection
	}

	var grpcErr interface{ GRPCStatus() *status.Status }
	if errors.As(err, &grpcErr) {
		return classifyCode(grpcErr.GRPCStatus().Code())
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindConnection
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindConnection
	}

	return KindUnknown
}

func classifyCode(code codes.Code) Kind {
	switch code {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return KindConnection
	case codes.Unimplemented:
		return KindProtocol
	case codes.Unauthenticated, codes.PermissionDenied:
		return KindAuthentication
	case codes.OK:
		return KindUnknown
	default:
		return KindServerExecution
	}
}
