package core

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type mockedResultStream struct {
	max     int
	current int
	sleep   time.Duration
	failAt  int
}

func newMockedResultStream(maxRows int, sleep time.Duration) *mockedResultStream {
	return &mockedResultStream{
		max:    maxRows,
		sleep:  sleep,
		failAt: -1,
	}
}

func (mir *mockedResultStream) Meta() *Meta {
	return &Meta{ReportedRows: int64(mir.max)}
}

func (mir *mockedResultStream) Header() Header {
	return Header{"header1", "header2"}
}

func (mir *mockedResultStream) Next() (Row, error) {
	if mir.current == mir.failAt {
		return nil, errors.New("stream broke")
	}
	if mir.current < mir.max {
		// sleep between iterations
		time.Sleep(mir.sleep)

		num := mir.current
		mir.current += 1
		return Row{num, strconv.Itoa(num)}, nil
	}

	return nil, errors.New("no next row")
}

func (mir *mockedResultStream) HasNext() bool {
	return mir.current < mir.max
}

func (mir *mockedResultStream) Close() {}

func (mir *mockedResultStream) Range(from int, to int) []Row {
	var rows []Row

	for i := from; i < to; i++ {
		rows = append(rows, Row{i, strconv.Itoa(i)})
	}
	return rows
}

func TestResult_Rows(t *testing.T) {
	numOfRows := 10
	stream := newMockedResultStream(numOfRows, 0)

	type testCase struct {
		name          string
		from          int
		to            int
		slowStream    bool
		expectedRows  []Row
		expectedError error
	}

	testCases := []testCase{
		{
			name:         "get all",
			from:         0,
			to:           -1,
			expectedRows: stream.Range(0, numOfRows),
		},
		{
			name:         "get basic range",
			from:         0,
			to:           3,
			expectedRows: stream.Range(0, 3),
		},
		{
			name:         "get last 2",
			from:         -3,
			to:           -1,
			expectedRows: stream.Range(numOfRows-2, numOfRows),
		},
		{
			name:         "get only one",
			from:         0,
			to:           1,
			expectedRows: stream.Range(0, 1),
		},
		{
			name:         "out of bounds is clamped",
			from:         8,
			to:           20,
			expectedRows: stream.Range(8, numOfRows),
		},
		{
			name:          "invalid range",
			from:          5,
			to:            1,
			expectedError: ErrInvalidRange(5, 1),
		},
		{
			name:          "invalid range (even if 10 can be higher than -1, its undefined and should fail)",
			from:          -5,
			to:            10,
			expectedError: ErrInvalidRange(-5, 10),
		},
		{
			name:         "wait for available index",
			from:         0,
			to:           3,
			slowStream:   true,
			expectedRows: stream.Range(0, 3),
		},
		{
			name:         "wait for all to be drained",
			from:         0,
			to:           -1,
			slowStream:   true,
			expectedRows: stream.Range(0, numOfRows),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := require.New(t)
			result := new(Result)

			if tc.slowStream {
				started := make(chan struct{})
				go func() {
					_ = result.SetIter(newMockedResultStream(numOfRows, 50*time.Millisecond), func() { close(started) })
				}()
				<-started
			} else {
				r.NoError(result.SetIter(newMockedResultStream(numOfRows, 0), nil))
			}

			rows, err := result.Rows(tc.from, tc.to)
			if tc.expectedError != nil {
				r.EqualError(err, tc.expectedError.Error())
				return
			}

			r.NoError(err)
			r.Equal(tc.expectedRows, rows)
		})
	}
}

func TestResult_NotFilled(t *testing.T) {
	r := require.New(t)

	result := new(Result)
	r.True(result.IsEmpty())

	_, err := result.Rows(0, -1)
	r.ErrorIs(err, ErrCallNotFinished)
}

func TestResult_SetIterError(t *testing.T) {
	r := require.New(t)

	stream := newMockedResultStream(10, 0)
	stream.failAt = 4

	result := new(Result)
	err := result.SetIter(stream, nil)
	r.EqualError(err, "stream broke")
	r.True(result.IsEmpty())
	r.Equal(4, result.Len())
}

func TestResult_Format(t *testing.T) {
	r := require.New(t)

	result := new(Result)
	r.NoError(result.SetIter(newMockedResultStream(3, 0), nil))

	out, err := result.Format(formatterFunc(func(header Header, rows []Row, opts *FormatterOptions) ([]byte, error) {
		r.Equal(Header{"header1", "header2"}, header)
		r.Equal(1, opts.ChunkStart)
		return []byte(strconv.Itoa(len(rows))), nil
	}), 1, -1)
	r.NoError(err)
	r.Equal("2", string(out))
	r.Equal(int64(3), result.Meta().ReportedRows)
}

type formatterFunc func(header Header, rows []Row, opts *FormatterOptions) ([]byte, error)

func (f formatterFunc) Format(header Header, rows []Row, opts *FormatterOptions) ([]byte, error) {
	return f(header, rows, opts)
}
