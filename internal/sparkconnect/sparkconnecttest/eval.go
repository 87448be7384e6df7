package sparkconnecttest

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/arrow/ipc"
	"github.com/apache/arrow/go/v15/arrow/memory"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kndndrj/sailcheck/internal/sparkconnect"
)

// result is an evaluated relation with a single column.
type result struct {
	column  string
	ints    []int64
	strings []string
}

type batch struct {
	rowCount int64
	data     []byte
}

var (
	rangeQueryPattern   = regexp.MustCompile(`(?i)^\s*SELECT\s+id\s+AS\s+(\w+)\s+FROM\s+range\((\d+)\)\s*$`)
	versionQueryPattern = regexp.MustCompile(`(?i)^\s*SELECT\s+version\(\)\s*$`)
)

func evaluate(rel *sparkconnect.Relation, version string) (*result, error) {
	switch {
	case rel.Range != nil:
		rng := rel.Range
		step := rng.Step
		if step == 0 {
			step = 1
		}
		res := &result{column: "id", ints: []int64{}}
		for v := rng.Start; (step > 0 && v < rng.End) || (step < 0 && v > rng.End); v += step {
			res.ints = append(res.ints, v)
		}
		return res, nil

	case rel.WithColumnsRenamed != nil:
		if rel.WithColumnsRenamed.Input == nil {
			return nil, status.Error(codes.InvalidArgument, "rename without input")
		}
		res, err := evaluate(rel.WithColumnsRenamed.Input, version)
		if err != nil {
			return nil, err
		}
		if to, ok := rel.WithColumnsRenamed.Renames[res.column]; ok {
			res.column = to
		}
		return res, nil

	case rel.SQL != nil:
		query := rel.SQL.Query
		if m := rangeQueryPattern.FindStringSubmatch(query); m != nil {
			n, err := strconv.ParseInt(m[2], 10, 64)
			if err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			res, err := evaluate(sparkconnect.NewRange(n), version)
			if err != nil {
				return nil, err
			}
			res.column = m[1]
			return res, nil
		}
		if versionQueryPattern.MatchString(query) {
			return &result{column: "version()", strings: []string{version}}, nil
		}
		return nil, status.Errorf(codes.InvalidArgument, "[PARSE_SYNTAX_ERROR] unsupported query: %s", query)
	}

	return nil, status.Error(codes.InvalidArgument, "unsupported relation")
}

func (r *result) len() int {
	if r.strings != nil {
		return len(r.strings)
	}
	return len(r.ints)
}

// batches encodes the result in batches of batchSize rows. An empty result
// still produces one batch so the client learns the schema.
func (r *result) batches(batchSize int) ([]batch, error) {
	total := r.len()
	if batchSize <= 0 || batchSize > total {
		batchSize = total
	}

	if total == 0 {
		data, err := r.encode(0, 0)
		if err != nil {
			return nil, err
		}
		return []batch{{data: data}}, nil
	}

	var out []batch
	for from := 0; from < total; from += batchSize {
		to := min(from+batchSize, total)

		data, err := r.encode(from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, batch{rowCount: int64(to - from), data: data})
	}

	return out, nil
}

func (r *result) encode(from, to int) ([]byte, error) {
	mem := memory.NewGoAllocator()

	typ := arrow.DataType(arrow.PrimitiveTypes.Int64)
	if r.strings != nil {
		typ = arrow.BinaryTypes.String
	}
	schema := arrow.NewSchema([]arrow.Field{{Name: r.column, Type: typ, Nullable: true}}, nil)

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	switch b := builder.Field(0).(type) {
	case *array.Int64Builder:
		b.AppendValues(r.ints[from:to], nil)
	case *array.StringBuilder:
		b.AppendValues(r.strings[from:to], nil)
	}

	rec := builder.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := writer.Write(rec); err != nil {
		return nil, fmt.Errorf("writer.Write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("writer.Close: %w", err)
	}

	return buf.Bytes(), nil
}
