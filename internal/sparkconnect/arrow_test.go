package sparkconnect

import (
	"bytes"
	"testing"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/arrow/ipc"
	"github.com/apache/arrow/go/v15/arrow/memory"
	"github.com/stretchr/testify/require"
)

func TestDecodeArrowBatch(t *testing.T) {
	r := require.New(t)

	mem := memory.NewGoAllocator()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "number", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "ok", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "ratio", Type: arrow.PrimitiveTypes.Float64},
	}, nil)

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	builder.Field(0).(*array.Int64Builder).AppendValues([]int64{0, 1, 2}, []bool{true, false, true})
	builder.Field(1).(*array.StringBuilder).AppendValues([]string{"a", "b", "c"}, nil)
	builder.Field(2).(*array.BooleanBuilder).AppendValues([]bool{true, false, true}, nil)
	builder.Field(3).(*array.Float64Builder).AppendValues([]float64{0.5, 1, 1.5}, nil)

	rec := builder.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	r.NoError(writer.Write(rec))
	r.NoError(writer.Close())

	header, rows, err := decodeArrowBatch(mem, buf.Bytes())
	r.NoError(err)

	r.Equal([]string{"number", "name", "ok", "ratio"}, header)
	r.Equal([][]any{
		{int64(0), "a", true, 0.5},
		{nil, "b", false, 1.0},
		{int64(2), "c", true, 1.5},
	}, rows)
}

func TestDecodeArrowBatch_Invalid(t *testing.T) {
	_, _, err := decodeArrowBatch(memory.NewGoAllocator(), []byte("not arrow"))

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
}
