// Package sparkconnecttest provides an in-process spark connect server which
// understands just enough of the protocol to answer version requests and
// range queries.
package sparkconnecttest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/kndndrj/sailcheck/internal/sparkconnect"
)

const bufferSize = 1024 * 1024

// Server is a fake spark connect server.
type Server struct {
	config   *serverConfig
	listener net.Listener
	bufconn  *bufconn.Listener
	srv      *grpc.Server
	group    *errgroup.Group

	serverSideID string

	mu       sync.Mutex
	plans    []*sparkconnect.Relation
	released []string
	headers  []metadata.MD
}

// New starts a server. Without WithListener it serves on an in-memory
// listener reachable through DialOption.
func New(opts ...Option) *Server {
	config := &serverConfig{
		version: "3.5.0",
	}
	for _, opt := range opts {
		opt(config)
	}

	s := &Server{
		config:       config,
		serverSideID: uuid.New().String(),
	}

	s.listener = config.listener
	if s.listener == nil {
		s.bufconn = bufconn.Listen(bufferSize)
		s.listener = s.bufconn
	}

	s.srv = grpc.NewServer(
		grpc.ForceServerCodec(sparkconnect.Codec{}),
		grpc.UnknownServiceHandler(s.handle),
	)

	s.group = new(errgroup.Group)
	s.group.Go(func() error {
		return s.srv.Serve(s.listener)
	})

	return s
}

// DialOption returns a dial option which connects to the in-memory listener.
func (s *Server) DialOption() grpc.DialOption {
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		if s.bufconn == nil {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", s.listener.Addr().String())
		}
		return s.bufconn.DialContext(ctx)
	})
}

// Remote returns the connection string of a server started WithListener.
func (s *Server) Remote() string {
	return sparkconnect.Scheme + "://" + s.listener.Addr().String()
}

// Close stops the server.
func (s *Server) Close() error {
	s.srv.Stop()

	err := s.group.Wait()
	if errors.Is(err, grpc.ErrServerStopped) {
		// stopped before Serve got to run
		return nil
	}
	return err
}

// Plans returns all plans received by ExecutePlan.
func (s *Server) Plans() []*sparkconnect.Relation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*sparkconnect.Relation(nil), s.plans...)
}

// Released returns ids of released sessions.
func (s *Server) Released() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.released...)
}

// Headers returns the request metadata of every call.
func (s *Server) Headers() []metadata.MD {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]metadata.MD(nil), s.headers...)
}

func (s *Server) handle(_ any, stream grpc.ServerStream) error {
	method, ok := grpc.MethodFromServerStream(stream)
	if !ok {
		return status.Error(codes.Internal, "no method in stream")
	}

	md, _ := metadata.FromIncomingContext(stream.Context())
	s.mu.Lock()
	s.headers = append(s.headers, md)
	s.mu.Unlock()

	if err := s.authorize(md); err != nil {
		return err
	}

	switch method {
	case sparkconnect.MethodAnalyzePlan:
		return s.analyzePlan(stream)
	case sparkconnect.MethodExecutePlan:
		return s.executePlan(stream)
	case sparkconnect.MethodReleaseSession:
		return s.releaseSession(stream)
	default:
		return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
	}
}

func (s *Server) authorize(md metadata.MD) error {
	if s.config.token == "" {
		return nil
	}
	for _, v := range md.Get("authorization") {
		if v == "Bearer "+s.config.token {
			return nil
		}
	}
	return status.Error(codes.Unauthenticated, "invalid bearer token")
}

func (s *Server) sessionID(requested string) string {
	if s.config.responseSessionID != "" {
		return s.config.responseSessionID
	}
	return requested
}

func (s *Server) analyzePlan(stream grpc.ServerStream) error {
	req := new(sparkconnect.AnalyzePlanRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	if s.config.analyzeErr != nil {
		return s.config.analyzeErr
	}

	resp := &sparkconnect.AnalyzePlanResponse{
		SessionID:           s.sessionID(req.SessionID),
		ServerSideSessionID: s.serverSideID,
	}
	if req.SparkVersion {
		version := s.config.version
		resp.SparkVersion = &version
	}

	return stream.SendMsg(resp)
}

func (s *Server) executePlan(stream grpc.ServerStream) error {
	req := new(sparkconnect.ExecutePlanRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}

	s.mu.Lock()
	s.plans = append(s.plans, req.Plan)
	s.mu.Unlock()

	if s.config.executeErr != nil {
		return s.config.executeErr
	}
	if s.config.blockExecute {
		<-stream.Context().Done()
		return status.FromContextError(stream.Context().Err()).Err()
	}
	if req.Plan == nil {
		return status.Error(codes.InvalidArgument, "missing plan")
	}

	result, err := evaluate(req.Plan, s.config.version)
	if err != nil {
		return err
	}

	batches, err := result.batches(s.config.batchSize)
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}

	var offset int64
	for i, batch := range batches {
		if s.config.failAfterBatches > 0 && i == s.config.failAfterBatches {
			return s.config.failErr
		}

		resp := &sparkconnect.ExecutePlanResponse{
			SessionID:           s.sessionID(req.SessionID),
			ServerSideSessionID: s.serverSideID,
			OperationID:         req.OperationID,
			ResponseID:          uuid.New().String(),
			ArrowBatch: &sparkconnect.ArrowBatch{
				RowCount:    batch.rowCount,
				Data:        batch.data,
				StartOffset: offset,
			},
		}
		if s.config.rowCountSkew != 0 {
			resp.ArrowBatch.RowCount += s.config.rowCountSkew
		}
		if err := stream.SendMsg(resp); err != nil {
			return fmt.Errorf("stream.SendMsg: %w", err)
		}
		offset += batch.rowCount
	}

	if s.config.omitResultComplete {
		return nil
	}

	return stream.SendMsg(&sparkconnect.ExecutePlanResponse{
		SessionID:           s.sessionID(req.SessionID),
		ServerSideSessionID: s.serverSideID,
		OperationID:         req.OperationID,
		ResponseID:          uuid.New().String(),
		ResultComplete:      true,
	})
}

func (s *Server) releaseSession(stream grpc.ServerStream) error {
	req := new(sparkconnect.ReleaseSessionRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	if s.config.releaseUnimplemented {
		return status.Error(codes.Unimplemented, "ReleaseSession is not supported")
	}
	if s.config.releaseErr != nil {
		return s.config.releaseErr
	}

	s.mu.Lock()
	s.released = append(s.released, req.SessionID)
	s.mu.Unlock()

	return stream.SendMsg(&sparkconnect.ReleaseSessionResponse{
		SessionID:           req.SessionID,
		ServerSideSessionID: s.serverSideID,
	})
}
