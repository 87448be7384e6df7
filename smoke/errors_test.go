package smoke

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kndndrj/sailcheck/internal/sparkconnect"
)

func TestClassify(t *testing.T) {
	type testCase struct {
		name     string
		err      error
		expected Kind
	}

	testCases := []testCase{
		{name: "nil", err: nil, expected: KindUnknown},
		{name: "plain", err: errors.New("boom"), expected: KindUnknown},
		{name: "unavailable", err: status.Error(codes.Unavailable, "connection refused"), expected: KindConnection},
		{name: "deadline", err: status.Error(codes.DeadlineExceeded, "slow"), expected: KindConnection},
		{name: "unimplemented", err: status.Error(codes.Unimplemented, "no"), expected: KindProtocol},
		{name: "unauthenticated", err: status.Error(codes.Unauthenticated, "who"), expected: KindAuthentication},
		{name: "permission denied", err: status.Error(codes.PermissionDenied, "no"), expected: KindAuthentication},
		{name: "internal", err: status.Error(codes.Internal, "oops"), expected: KindServerExecution},
		{name: "invalid argument", err: status.Error(codes.InvalidArgument, "parse"), expected: KindServerExecution},
		{name: "wrapped status", err: fmt.Errorf("session.Execute: %w", status.Error(codes.Internal, "oops")), expected: KindServerExecution},
		{name: "protocol", err: &sparkconnect.ProtocolError{Reason: "bad batch"}, expected: KindProtocol},
		{name: "wrapped protocol", err: fmt.Errorf("x: %w", &sparkconnect.ProtocolError{Reason: "bad"}), expected: KindProtocol},
		{name: "invalid remote", err: fmt.Errorf("adapter.Connect: %w", sparkconnect.ErrInvalidRemote), expected: KindConnection},
		{name: "context canceled", err: context.Canceled, expected: KindConnection},
		{name: "net error", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, expected: KindConnection},
		{name: "smoke error", err: &Error{Kind: KindAuthentication, Err: errors.New("x")}, expected: KindAuthentication},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, Classify(tc.err))
		})
	}
}

func TestKind_ExitCode(t *testing.T) {
	r := require.New(t)

	codes := map[Kind]int{
		KindUnknown:         1,
		KindConnection:      2,
		KindProtocol:        3,
		KindServerExecution: 4,
		KindAuthentication:  5,
	}
	for kind, code := range codes {
		r.Equal(code, kind.ExitCode(), kind.String())
	}
}

func TestError(t *testing.T) {
	r := require.New(t)

	cause := status.Error(codes.Unavailable, "connection refused")
	err := newError(StageConnect, cause)

	r.Equal(KindConnection, err.Kind)
	r.ErrorIs(err, cause)
	r.Equal("connection error during connect: rpc error: code = Unavailable desc = connection refused", err.Error())

	// already classified errors keep their stage
	again := newError(StageQuery, fmt.Errorf("wrapped: %w", err))
	r.Same(err, again)
}
