package sparkconnect

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/apache/arrow/go/v15/arrow/memory"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/kndndrj/sailcheck/logging"
)

// releaseTimeout bounds the ReleaseSession call made on Close.
const releaseTimeout = 5 * time.Second

type sessionConfig struct {
	dialOptions []grpc.DialOption
	allocator   memory.Allocator
	logger      logging.Logger
}

type Option func(*sessionConfig)

// WithDialOptions appends grpc dial options, e.g. a custom dialer.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *sessionConfig) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

// WithAllocator sets the allocator used for decoding arrow batches.
func WithAllocator(mem memory.Allocator) Option {
	return func(c *sessionConfig) {
		c.allocator = mem
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(c *sessionConfig) {
		c.logger = logger
	}
}

// Session is a spark connect session bound to a single grpc connection.
type Session struct {
	conn        *grpc.ClientConn
	remote      *Remote
	id          string
	userContext UserContext
	mem         memory.Allocator
	log         logging.Logger

	mu           sync.Mutex
	serverSideID string
	closed       bool
}

// Connect creates a session for remote. The connection is established
// lazily, so an unreachable server is reported by the first rpc.
func Connect(ctx context.Context, remote *Remote, opts ...Option) (*Session, error) {
	config := &sessionConfig{
		allocator: memory.DefaultAllocator,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(config)
	}

	creds := insecure.NewCredentials()
	if remote.UseSSL {
		creds = credentials.NewTLS(&tls.Config{
			ServerName: remote.Host,
			MinVersion: tls.VersionTLS12,
		})
	}

	dialOptions := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithUserAgent(remote.UserAgent),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec{})),
	}
	dialOptions = append(dialOptions, config.dialOptions...)

	conn, err := grpc.NewClient("passthrough:///"+remote.Address(), dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("grpc.NewClient: %w", err)
	}

	id := remote.SessionID
	if id == "" {
		id = uuid.New().String()
	}

	config.logger.Debugf("spark connect session %s for %s", id, remote)

	return &Session{
		conn:   conn,
		remote: remote,
		id:     id,
		userContext: UserContext{
			UserID:   remote.UserID,
			UserName: remote.UserID,
		},
		mem: config.allocator,
		log: config.logger,
	}, nil
}

// ID returns the client side session id.
func (s *Session) ID() string {
	return s.id
}

// outgoing attaches the auth token and custom headers to ctx.
func (s *Session) outgoing(ctx context.Context) context.Context {
	kv := make([]string, 0, 2*len(s.remote.Headers)+2)
	if s.remote.Token != "" {
		kv = append(kv, "authorization", "Bearer "+s.remote.Token)
	}
	for k, v := range s.remote.Headers {
		kv = append(kv, k, v)
	}
	if len(kv) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

// checkSession verifies the response belongs to this session and that the
// server side session did not change in between calls.
func (s *Session) checkSession(sessionID, serverSideID string) error {
	if sessionID != "" && sessionID != s.id {
		return &ProtocolError{Reason: fmt.Sprintf("response for session %q, expected %q", sessionID, s.id)}
	}
	if serverSideID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.serverSideID == "" {
		s.serverSideID = serverSideID
		return nil
	}
	if s.serverSideID != serverSideID {
		return &ProtocolError{Reason: fmt.Sprintf("server side session changed from %q to %q", s.serverSideID, serverSideID)}
	}
	return nil
}

// Version asks the server for its spark version.
func (s *Session) Version(ctx context.Context) (string, error) {
	req := &AnalyzePlanRequest{
		SessionID:    s.id,
		UserContext:  s.userContext,
		ClientType:   s.remote.UserAgent,
		SparkVersion: true,
	}
	resp := new(AnalyzePlanResponse)

	if err := s.conn.Invoke(s.outgoing(ctx), MethodAnalyzePlan, req, resp); err != nil {
		return "", fmt.Errorf("AnalyzePlan: %w", err)
	}
	if err := s.checkSession(resp.SessionID, resp.ServerSideSessionID); err != nil {
		return "", err
	}
	if resp.SparkVersion == nil {
		return "", &ProtocolError{Reason: "analyze response has no spark version"}
	}

	return *resp.SparkVersion, nil
}

// Execute starts executing plan on the server. It waits for the first
// arrow batch so the column names are known when it returns.
func (s *Session) Execute(ctx context.Context, plan *Relation) (*Stream, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errors.New("session is closed")
	}

	streamCtx, cancel := context.WithCancel(s.outgoing(ctx))

	desc := &grpc.StreamDesc{
		StreamName:    "ExecutePlan",
		ServerStreams: true,
	}
	cs, err := s.conn.NewStream(streamCtx, desc, MethodExecutePlan)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ExecutePlan: %w", err)
	}

	operationID := uuid.New().String()
	req := &ExecutePlanRequest{
		SessionID:   s.id,
		UserContext: s.userContext,
		Plan:        plan,
		ClientType:  s.remote.UserAgent,
		OperationID: operationID,
	}
	if err := cs.SendMsg(req); err != nil {
		cancel()
		return nil, fmt.Errorf("ExecutePlan: %w", err)
	}
	if err := cs.CloseSend(); err != nil {
		cancel()
		return nil, fmt.Errorf("ExecutePlan: %w", err)
	}

	s.log.Debugf("started operation %s", operationID)

	stream := &Stream{
		session:     s,
		cs:          cs,
		cancel:      cancel,
		operationID: operationID,
	}

	// header comes with the first batch
	first, err := stream.NextBatch()
	if err != nil && !errors.Is(err, io.EOF) {
		stream.Close()
		return nil, err
	}
	stream.pending = first

	return stream, nil
}

// Collect executes plan and reads the whole result.
func (s *Session) Collect(ctx context.Context, plan *Relation) ([]string, [][]any, error) {
	stream, err := s.Execute(ctx, plan)
	if err != nil {
		return nil, nil, err
	}
	defer stream.Close()

	var rows [][]any
	for {
		batch, err := stream.NextBatch()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, batch...)
	}

	return stream.Header(), rows, nil
}

// Close releases the session on the server and closes the connection.
// Servers that don't implement ReleaseSession are tolerated.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	req := &ReleaseSessionRequest{
		SessionID:   s.id,
		UserContext: s.userContext,
		ClientType:  s.remote.UserAgent,
	}
	var releaseErr error
	err := s.conn.Invoke(s.outgoing(ctx), MethodReleaseSession, req, new(ReleaseSessionResponse))
	if err != nil && status.Code(err) != codes.Unimplemented {
		releaseErr = fmt.Errorf("ReleaseSession: %w", err)
	}

	s.log.Debugf("released session %s", s.id)

	if err := s.conn.Close(); err != nil {
		return errors.Join(releaseErr, fmt.Errorf("conn.Close: %w", err))
	}
	return releaseErr
}

func (s *Session) Logger() logging.Logger {
	return s.log
}

// Stream is a running ExecutePlan call.
type Stream struct {
	session     *Session
	cs          grpc.ClientStream
	cancel      context.CancelFunc
	operationID string

	header   []string
	pending  [][]any
	rowCount int64
	done     bool
}

// Header returns the column names of the result.
func (s *Stream) Header() []string {
	return s.header
}

// OperationID returns the id of the operation on the server.
func (s *Stream) OperationID() string {
	return s.operationID
}

// RowCount returns the number of rows the server announced so far.
func (s *Stream) RowCount() int64 {
	return s.rowCount
}

// NextBatch returns the rows of the next arrow batch, or io.EOF once the
// result is complete.
func (s *Stream) NextBatch() ([][]any, error) {
	if s.pending != nil {
		rows := s.pending
		s.pending = nil
		return rows, nil
	}

	for !s.done {
		resp := new(ExecutePlanResponse)
		err := s.cs.RecvMsg(resp)
		if errors.Is(err, io.EOF) {
			s.done = true
			break
		}
		if err != nil {
			s.done = true
			return nil, fmt.Errorf("ExecutePlan: %w", err)
		}

		if err := s.session.checkSession(resp.SessionID, resp.ServerSideSessionID); err != nil {
			s.done = true
			return nil, err
		}
		if resp.OperationID != "" && resp.OperationID != s.operationID {
			s.done = true
			return nil, &ProtocolError{Reason: fmt.Sprintf("response for operation %q, expected %q", resp.OperationID, s.operationID)}
		}

		if resp.ResultComplete {
			s.done = true
			break
		}
		if resp.ArrowBatch == nil {
			// metrics, schema and other responses
			continue
		}

		header, rows, err := decodeArrowBatch(s.session.mem, resp.ArrowBatch.Data)
		if err != nil {
			s.done = true
			return nil, err
		}
		if int64(len(rows)) != resp.ArrowBatch.RowCount {
			s.done = true
			return nil, &ProtocolError{Reason: fmt.Sprintf("arrow batch announced %d rows, got %d", resp.ArrowBatch.RowCount, len(rows))}
		}
		if s.header == nil {
			s.header = header
		}
		s.rowCount += int64(len(rows))

		if rows == nil {
			rows = [][]any{}
		}
		return rows, nil
	}

	return nil, io.EOF
}

// Close stops the stream. Safe to call multiple times.
func (s *Stream) Close() {
	s.done = true
	s.cancel()
}
