package core

type (
	// Row is a single result record, values in column order.
	Row []any
	// Header holds the column names of a result.
	Header []string

	// Meta describes a result stream.
	Meta struct {
		// ReportedRows is the row count announced by the server, -1 if unknown
		ReportedRows int64
	}

	// ResultStream iterates over the rows of an executed query.
	ResultStream interface {
		Meta() *Meta
		Header() Header
		Next() (Row, error)
		HasNext() bool
		Close()
	}
)

type (
	// FormatterOptions are passed to every Format call.
	FormatterOptions struct {
		// ChunkStart is the index of the first formatted row in the result
		ChunkStart int
	}

	// Formatter renders rows for printing.
	Formatter interface {
		Format(header Header, rows []Row, opts *FormatterOptions) ([]byte, error)
	}
)
