package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kndndrj/sailcheck/core"
	"github.com/kndndrj/sailcheck/core/builders"
	"github.com/kndndrj/sailcheck/internal/sparkconnect"
	"github.com/kndndrj/sailcheck/logging"
)

var (
	_ core.Driver          = (*sparkConnectDriver)(nil)
	_ core.VersionReporter = (*sparkConnectDriver)(nil)
	_ core.RangeQuerier    = (*sparkConnectDriver)(nil)
)

type sparkConnectDriver struct {
	session *sparkconnect.Session
	log     logging.Logger
}

func (d *sparkConnectDriver) Query(ctx context.Context, query string) (core.ResultStream, error) {
	return d.execute(ctx, sparkconnect.NewSQL(query))
}

// Range builds range(n) with the id column renamed to column.
func (d *sparkConnectDriver) Range(ctx context.Context, n int64, column string) (core.ResultStream, error) {
	plan := sparkconnect.NewRange(n).RenameColumns(map[string]string{"id": column})
	return d.execute(ctx, plan)
}

func (d *sparkConnectDriver) Version(ctx context.Context) (string, error) {
	return d.session.Version(ctx)
}

func (d *sparkConnectDriver) execute(ctx context.Context, plan *sparkconnect.Relation) (core.ResultStream, error) {
	stream, err := d.session.Execute(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("session.Execute: %w", err)
	}

	meta := &core.Meta{ReportedRows: -1}

	next, hasNext := builders.NextBatches(func() ([]core.Row, error) {
		batch, err := stream.NextBatch()
		if errors.Is(err, io.EOF) {
			meta.ReportedRows = stream.RowCount()
			d.log.Debugf("operation %s complete: %d rows", stream.OperationID(), stream.RowCount())
			return nil, err
		}
		if err != nil {
			return nil, err
		}

		rows := make([]core.Row, len(batch))
		for i := range batch {
			rows[i] = core.Row(batch[i])
		}
		return rows, nil
	})

	return builders.NewResultStreamBuilder().
		WithNextFunc(next, hasNext).
		WithHeader(core.Header(stream.Header())).
		WithMeta(meta).
		WithCloseFunc(stream.Close).
		Build(), nil
}

// Close releases the session. Release errors are not fatal, the server
// reaps abandoned sessions on its own.
func (d *sparkConnectDriver) Close() {
	if err := d.session.Close(context.Background()); err != nil {
		d.log.Debugf("release session: %v", err)
	}
}
