package sparkconnect_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/kndndrj/sailcheck/internal/sparkconnect"
	"github.com/kndndrj/sailcheck/internal/sparkconnect/sparkconnecttest"
)

func newServer(t *testing.T, opts ...sparkconnecttest.Option) *sparkconnecttest.Server {
	t.Helper()

	srv := sparkconnecttest.New(opts...)
	t.Cleanup(func() {
		require.NoError(t, srv.Close())
	})
	return srv
}

func connect(t *testing.T, srv *sparkconnecttest.Server, connectionString string) *sparkconnect.Session {
	t.Helper()
	r := require.New(t)

	remote, err := sparkconnect.ParseRemote(connectionString)
	r.NoError(err)

	session, err := sparkconnect.Connect(context.Background(), remote,
		sparkconnect.WithDialOptions(
			srv.DialOption(),
			// the in-memory listener does not speak tls
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		),
	)
	r.NoError(err)
	t.Cleanup(func() {
		_ = session.Close(context.Background())
	})

	return session
}

func TestSession_Version(t *testing.T) {
	r := require.New(t)

	srv := newServer(t, sparkconnecttest.WithVersion("3.5.1"))
	session := connect(t, srv, "sc://localhost")

	version, err := session.Version(context.Background())
	r.NoError(err)
	r.Equal("3.5.1", version)
}

func TestSession_CollectRange(t *testing.T) {
	type testCase struct {
		name      string
		batchSize int
	}

	testCases := []testCase{
		{name: "single batch"},
		{name: "batch per row", batchSize: 1},
		{name: "uneven batches", batchSize: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := require.New(t)

			srv := newServer(t, sparkconnecttest.WithBatchSize(tc.batchSize))
			session := connect(t, srv, "sc://localhost")

			plan := sparkconnect.NewRange(5).RenameColumns(map[string]string{"id": "number"})
			header, rows, err := session.Collect(context.Background(), plan)
			r.NoError(err)

			r.Equal([]string{"number"}, header)
			r.Equal([][]any{{int64(0)}, {int64(1)}, {int64(2)}, {int64(3)}, {int64(4)}}, rows)

			plans := srv.Plans()
			r.Len(plans, 1)
			r.Equal(map[string]string{"id": "number"}, plans[0].WithColumnsRenamed.Renames)
			r.Equal(int64(5), plans[0].WithColumnsRenamed.Input.Range.End)
		})
	}
}

func TestSession_CollectEmpty(t *testing.T) {
	r := require.New(t)

	srv := newServer(t)
	session := connect(t, srv, "sc://localhost")

	header, rows, err := session.Collect(context.Background(), sparkconnect.NewRange(0))
	r.NoError(err)
	r.Equal([]string{"id"}, header)
	r.Empty(rows)
}

func TestSession_CollectSQL(t *testing.T) {
	r := require.New(t)

	srv := newServer(t)
	session := connect(t, srv, "sc://localhost")

	header, rows, err := session.Collect(context.Background(), sparkconnect.NewSQL("SELECT id AS n FROM range(2)"))
	r.NoError(err)
	r.Equal([]string{"n"}, header)
	r.Equal([][]any{{int64(0)}, {int64(1)}}, rows)

	_, _, err = session.Collect(context.Background(), sparkconnect.NewSQL("SELEC nonsense"))
	r.Equal(codes.InvalidArgument, status.Code(err))
}

func TestSession_WithoutResultComplete(t *testing.T) {
	r := require.New(t)

	srv := newServer(t, sparkconnecttest.WithoutResultComplete(), sparkconnecttest.WithBatchSize(2))
	session := connect(t, srv, "sc://localhost")

	_, rows, err := session.Collect(context.Background(), sparkconnect.NewRange(3))
	r.NoError(err)
	r.Len(rows, 3)
}

func TestSession_Errors(t *testing.T) {
	t.Run("execute error", func(t *testing.T) {
		srv := newServer(t, sparkconnecttest.WithExecuteError(status.Error(codes.Internal, "boom")))
		session := connect(t, srv, "sc://localhost")

		_, err := session.Execute(context.Background(), sparkconnect.NewRange(5))
		require.Equal(t, codes.Internal, status.Code(err))
		require.ErrorContains(t, err, "boom")
	})

	t.Run("error after first batch", func(t *testing.T) {
		r := require.New(t)

		srv := newServer(t,
			sparkconnecttest.WithBatchSize(2),
			sparkconnecttest.WithFailAfterBatches(1, status.Error(codes.Internal, "executor lost")),
		)
		session := connect(t, srv, "sc://localhost")

		stream, err := session.Execute(context.Background(), sparkconnect.NewRange(5))
		r.NoError(err)
		defer stream.Close()

		batch, err := stream.NextBatch()
		r.NoError(err)
		r.Len(batch, 2)

		_, err = stream.NextBatch()
		r.Equal(codes.Internal, status.Code(err))
	})

	t.Run("session mismatch", func(t *testing.T) {
		srv := newServer(t, sparkconnecttest.WithResponseSessionID("someone-else"))
		session := connect(t, srv, "sc://localhost")

		_, err := session.Version(context.Background())

		var protoErr *sparkconnect.ProtocolError
		require.ErrorAs(t, err, &protoErr)
	})

	t.Run("row count mismatch", func(t *testing.T) {
		srv := newServer(t, sparkconnecttest.WithRowCountSkew(1))
		session := connect(t, srv, "sc://localhost")

		_, _, err := session.Collect(context.Background(), sparkconnect.NewRange(5))

		var protoErr *sparkconnect.ProtocolError
		require.ErrorAs(t, err, &protoErr)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		srv := newServer(t, sparkconnecttest.WithToken("secret"))
		session := connect(t, srv, "sc://localhost/;token=wrong")

		_, err := session.Version(context.Background())
		require.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("unreachable", func(t *testing.T) {
		remote, err := sparkconnect.ParseRemote("sc://127.0.0.1:1")
		require.NoError(t, err)

		session, err := sparkconnect.Connect(context.Background(), remote)
		require.NoError(t, err)
		defer func() {
			_ = session.Close(context.Background())
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err = session.Version(ctx)
		require.Equal(t, codes.Unavailable, status.Code(err))
	})
}

func TestSession_Metadata(t *testing.T) {
	r := require.New(t)

	srv := newServer(t, sparkconnecttest.WithToken("secret"))
	session := connect(t, srv, "sc://localhost/;token=secret;x-trace=abc")

	_, err := session.Version(context.Background())
	r.NoError(err)

	headers := srv.Headers()
	r.NotEmpty(headers)
	r.Equal([]string{"Bearer secret"}, headers[0].Get("authorization"))
	r.Equal([]string{"abc"}, headers[0].Get("x-trace"))
}

func TestSession_Close(t *testing.T) {
	t.Run("releases session", func(t *testing.T) {
		r := require.New(t)

		srv := newServer(t)
		session := connect(t, srv, "sc://localhost")

		r.NoError(session.Close(context.Background()))
		r.Equal([]string{session.ID()}, srv.Released())

		// second close is a no-op
		r.NoError(session.Close(context.Background()))
		r.Len(srv.Released(), 1)

		_, err := session.Execute(context.Background(), sparkconnect.NewRange(1))
		r.Error(err)
	})

	t.Run("release not implemented", func(t *testing.T) {
		srv := newServer(t, sparkconnecttest.WithoutReleaseSession())
		session := connect(t, srv, "sc://localhost")

		require.NoError(t, session.Close(context.Background()))
		require.Empty(t, srv.Released())
	})

	t.Run("canceled context still releases", func(t *testing.T) {
		srv := newServer(t)
		session := connect(t, srv, "sc://localhost")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.NoError(t, session.Close(ctx))
		require.Len(t, srv.Released(), 1)
	})
}

func TestSession_ExecuteCanceled(t *testing.T) {
	srv := newServer(t)
	session := connect(t, srv, "sc://localhost")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := session.Execute(ctx, sparkconnect.NewRange(5))
	require.True(t, errors.Is(err, context.Canceled) || status.Code(err) == codes.Canceled)
}
