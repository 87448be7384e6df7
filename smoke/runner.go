// Package smoke runs the connectivity check: connect to the server, ask for
// its version, materialize a small range query and print the rows.
package smoke

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/kndndrj/sailcheck/adapters"
	"github.com/kndndrj/sailcheck/config"
	"github.com/kndndrj/sailcheck/core"
	"github.com/kndndrj/sailcheck/core/format"
	"github.com/kndndrj/sailcheck/internal/sparkconnect"
	"github.com/kndndrj/sailcheck/logging"
)

const rowPrefix = "   - "

// Report describes a successful run.
type Report struct {
	Remote  string
	Version string
	Query   string
	Header  core.Header
	Rows    []core.Row

	// ReportedRows is the row count announced by the server, -1 if the
	// driver does not report one
	ReportedRows int64

	ConnectTime time.Duration
	QueryTime   time.Duration
}

// Runner runs the check. Runs are independent of each other, every run
// opens and releases its own session.
type Runner struct {
	out    io.Writer
	config *runnerConfig
	log    logging.Logger
}

func NewRunner(out io.Writer, opts ...Option) *Runner {
	cfg := &runnerConfig{
		remote:     config.DefaultRemote,
		typ:        config.DefaultType,
		rows:       5,
		column:     "number",
		output:     "rows",
		attempts:   1,
		retryDelay: time.Second,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.attempts < 1 {
		cfg.attempts = 1
	}

	return &Runner{
		out:    out,
		config: cfg,
		log:    cfg.logger,
	}
}

// Run runs the check and prints its progress. On failure it prints the
// troubleshooting tips and returns an *Error. Rows are only printed if
// the whole result was received.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	fmt.Fprintf(r.out, "🌊 Connecting to Sail at %s...\n", core.RedactURL(r.config.remote))

	report, err := r.run(ctx)
	if err != nil {
		smokeErr := newError(StageSetup, err)
		r.log.Errorf("check failed: kind=%s stage=%s: %v", smokeErr.Kind, smokeErr.Stage, smokeErr.Err)
		r.printFailure(smokeErr)
		return nil, smokeErr
	}

	return report, nil
}

func (r *Runner) run(ctx context.Context) (*Report, error) {
	formatter, err := format.New(r.config.output, rowPrefix)
	if err != nil {
		return nil, newError(StageSetup, err)
	}

	start := time.Now()
	conn, version, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}
	// released on every path
	defer func() {
		conn.Close()
		r.log.Debugf("connection %s closed", conn.GetID())
	}()
	connectTime := time.Since(start)

	fmt.Fprintf(r.out, "✅ Session created! Server Version: %s\n", version)
	fmt.Fprintln(r.out, "🚀 Running a simple DataFrame operation...")

	call, err := r.query(ctx, conn)
	if err != nil {
		return nil, newError(StageQuery, err)
	}
	result, err := call.GetResult()
	if err != nil {
		return nil, newError(StageQuery, err)
	}

	rows, err := result.Rows(0, -1)
	if err != nil {
		return nil, newError(StageQuery, err)
	}

	reported := result.Meta().ReportedRows
	if reported >= 0 && reported != int64(len(rows)) {
		return nil, &Error{Kind: KindProtocol, Stage: StageVerify, Err: fmt.Errorf("server announced %d rows, got %d", reported, len(rows))}
	}
	if r.config.sql == "" {
		if err := verifyRange(rows, r.config.rows); err != nil {
			return nil, &Error{Kind: KindProtocol, Stage: StageVerify, Err: err}
		}
	}

	// render everything before writing so a formatter error leaves no
	// partial output behind
	formatted, err := result.Format(formatter, 0, -1)
	if err != nil {
		return nil, newError(StageOutput, err)
	}

	var buf bytes.Buffer
	buf.WriteString("\n📊 Results from Sail:\n")
	buf.Write(formatted)
	if len(formatted) > 0 && formatted[len(formatted)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString("\n🎉 SUCCESS: Your local client is talking to Sail!\n")

	if _, err := r.out.Write(buf.Bytes()); err != nil {
		return nil, newError(StageOutput, err)
	}

	return &Report{
		Remote:       core.RedactURL(r.config.remote),
		Version:      version,
		Query:        call.GetQuery(),
		Header:       result.Header(),
		Rows:         rows,
		ReportedRows: reported,
		ConnectTime:  connectTime,
		QueryTime:    call.GetTimeTaken(),
	}, nil
}

// connect opens a connection and asks for the server version. Connection
// errors are retried up to the configured number of attempts.
func (r *Runner) connect(ctx context.Context) (*core.Connection, string, error) {
	params := &core.ConnectionParams{
		Name: "sail",
		Type: r.config.typ,
		URL:  r.config.remote,
	}

	var (
		conn    *core.Connection
		version string
	)
	// retry.Do returns before the first attempt on a done context
	stage := StageConnect

	err := retry.Do(
		func() error {
			stage = StageConnect
			c, err := r.newConnection(params)
			if err != nil {
				return err
			}

			stage = StageVersion
			v, err := c.Version(ctx)
			if err != nil {
				c.Close()
				return err
			}

			conn, version = c, v
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(r.config.attempts),
		retry.Delay(r.config.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return Classify(err) == KindConnection && ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			// the last failure is reported by Run
			if n+1 < r.config.attempts {
				r.log.Warnf("attempt %d/%d failed: %v", n+1, r.config.attempts, err)
			}
		}),
	)
	if err != nil {
		return nil, "", newError(stage, err)
	}

	r.log.Debugf("connected to %s (%s), server version %s", core.RedactURL(r.config.remote), conn.GetType(), version)
	return conn, version, nil
}

func (r *Runner) newConnection(params *core.ConnectionParams) (*core.Connection, error) {
	if r.config.adapter != nil {
		return core.NewConnection(params, r.config.adapter)
	}

	adapter, err := new(adapters.Mux).GetAdapter(params.Expand().Type)
	if err != nil {
		return nil, fmt.Errorf("Mux.GetAdapter: %w", err)
	}
	// sessions log through the runner
	if sc, ok := adapter.(*adapters.SparkConnect); ok {
		adapter = sc.WithOptions(sparkconnect.WithLogger(r.log))
	}

	return core.NewConnection(params, adapter)
}

func (r *Runner) query(ctx context.Context, conn *core.Connection) (*core.Call, error) {
	onEvent := func(state core.CallState, c *core.Call) {
		r.log.Debugf("call %s: %s", c.GetID(), state)
	}

	var call *core.Call
	if r.config.sql != "" {
		call = conn.Execute(ctx, r.config.sql, onEvent)
	} else {
		call = conn.ExecuteRange(ctx, r.config.rows, r.config.column, onEvent)
	}

	if err := call.Wait(ctx); err != nil {
		return nil, err
	}

	r.log.Debugf("call %s took %s", call.GetID(), call.GetTimeTaken())
	return call, nil
}

// verifyRange checks rows hold the values 0 ... n-1 in ascending order.
func verifyRange(rows []core.Row, n int64) error {
	if int64(len(rows)) != n {
		return fmt.Errorf("expected %d rows, got %d", n, len(rows))
	}

	for i, row := range rows {
		if len(row) != 1 {
			return fmt.Errorf("row %d: expected 1 field, got %d", i, len(row))
		}
		v, ok := asInt64(row[0])
		if !ok || v != int64(i) {
			return fmt.Errorf("row %d: expected %d, got %v", i, i, row[0])
		}
	}

	return nil
}

func asInt64(val any) (int64, bool) {
	switch v := val.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

func (r *Runner) printFailure(err error) {
	fmt.Fprintln(r.out, "\n❌ ERROR: Could not connect or execute.")
	fmt.Fprintln(r.out, "   Troubleshooting Tips:")
	fmt.Fprintln(r.out, "   1. Is 'just connect' running in another terminal?")
	fmt.Fprintln(r.out, "   2. Is the Sail pod running? (kubectl get pods)")
	fmt.Fprintf(r.out, "   3. Details: %v\n", err)
}
