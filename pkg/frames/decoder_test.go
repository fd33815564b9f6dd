package frames

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/sqlerr"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

func header(names ...string) wire.HeaderFrame {
	cols := make([]wire.Column, 0, len(names))
	for _, name := range names {
		cols = append(cols, wire.ColumnOf(name, "INTEGER"))
	}
	return wire.HeaderFrame{Columns: cols}
}

func batch(values ...int64) wire.BatchFrame {
	rows := make([]wire.Row, 0, len(values))
	for _, v := range values {
		rows = append(rows, wire.Row{wire.Integer(v)})
	}
	return wire.BatchFrame{Rows: rows}
}

func drain(ctx context.Context, d *Decoder) ([]int64, error) {
	var got []int64
	for {
		rows, err := d.Next(ctx)
		if err == io.EOF {
			return got, nil
		}
		if err != nil {
			return got, err
		}
		for _, row := range rows {
			v, _ := row[0].Int64()
			got = append(got, v)
		}
	}
}

func TestDecoder(t *testing.T) {
	type want struct {
		values    []int64
		columns   []string
		hasHeader bool
		violation bool
		sqlCode   string
	}

	type testcase struct {
		name   string
		frames []wire.Frame
		tail   error
		want   want
	}

	tests := [...]testcase{
		{
			name:   "header batches complete",
			frames: []wire.Frame{header("n"), batch(1, 2), batch(), batch(3), wire.CompleteFrame{}},
			want:   want{values: []int64{1, 2, 3}, columns: []string{"n"}, hasHeader: true},
		},
		{
			name:   "headerless batches",
			frames: []wire.Frame{batch(1), batch(2), wire.CompleteFrame{}},
			want:   want{values: []int64{1, 2}, columns: []string{}},
		},
		{
			name:   "complete only",
			frames: []wire.Frame{wire.CompleteFrame{Stats: wire.Stats{RowsAffected: 4}}},
			want:   want{columns: []string{}},
		},
		{
			name:   "header only then complete",
			frames: []wire.Frame{header("a", "b"), wire.CompleteFrame{}},
			want:   want{columns: []string{"a", "b"}, hasHeader: true},
		},
		{
			name:   "error first",
			frames: []wire.Frame{wire.ErrorFrame{Message: "no such table: t", SQL: "SELECT * FROM t", Code: "SQLITE_ERROR"}},
			want:   want{columns: []string{}, sqlCode: "SQLITE_ERROR"},
		},
		{
			name:   "error after rows",
			frames: []wire.Frame{header("n"), batch(1), wire.ErrorFrame{Message: "interrupted", Code: "SQLITE_INTERRUPT"}},
			want:   want{values: []int64{1}, columns: []string{"n"}, hasHeader: true, sqlCode: "SQLITE_INTERRUPT"},
		},
		{
			name:   "second header",
			frames: []wire.Frame{header("n"), batch(1), header("n"), wire.CompleteFrame{}},
			want:   want{values: []int64{1}, columns: []string{"n"}, hasHeader: true, violation: true},
		},
		{
			name:   "frame after complete",
			frames: []wire.Frame{header("n"), wire.CompleteFrame{}, batch(1)},
			want:   want{columns: []string{"n"}, hasHeader: true, violation: true},
		},
		{
			name:   "error after complete",
			frames: []wire.Frame{wire.CompleteFrame{}, wire.ErrorFrame{Message: "late"}},
			want:   want{columns: []string{}, violation: true},
		},
		{
			name:   "stream ends early",
			frames: []wire.Frame{header("n"), batch(1, 2)},
			want:   want{values: []int64{1, 2}, columns: []string{"n"}, hasHeader: true, violation: true},
		},
		{
			name:   "empty stream",
			frames: nil,
			want:   want{columns: []string{}, violation: true},
		},
		{
			name:   "nil frame",
			frames: []wire.Frame{header("n"), nil},
			want:   want{columns: []string{"n"}, hasHeader: true, violation: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			src := Replay(tt.frames...)
			d := NewDecoder(src)

			values, err := drain(ctx, d)
			require.Equal(t, tt.want.values, values)
			require.Equal(t, tt.want.columns, wire.ColumnNames(d.Columns()))
			require.Equal(t, tt.want.hasHeader, d.HasHeader())
			require.True(t, d.Done())
			require.True(t, src.Closed(), "source must be released at a terminal state")

			switch {
			case tt.want.violation:
				_, ok := errors.AsType[*sqlerr.ProtocolViolationError](err)
				require.Truef(t, ok, "want protocol violation, got %v", err)
			case tt.want.sqlCode != "":
				sqlErr, ok := errors.AsType[*sqlerr.SQLExecutionError](err)
				require.Truef(t, ok, "want sql error, got %v", err)
				require.Equal(t, tt.want.sqlCode, sqlErr.Code)
			default:
				require.NoError(t, err)
			}

			// a failed decoder keeps failing, a finished one keeps ending
			_, again := d.Next(ctx)
			if err == nil {
				require.Equal(t, io.EOF, again)
			} else {
				require.Equal(t, err, again)
			}
		})
	}
}

func TestDecoder_Stats(t *testing.T) {
	stats := wire.Stats{RowsRead: 2, RowsAffected: 0, LastInsertID: 9}
	d := NewDecoder(Replay(header("n"), batch(1, 2), wire.CompleteFrame{Stats: stats}))

	_, err := drain(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, stats, d.Stats())
}

func TestDecoder_Lazy(t *testing.T) {
	ctx := context.Background()
	src := Replay(header("n"), batch(1), batch(2), wire.CompleteFrame{})
	d := NewDecoder(src)

	require.NoError(t, d.Start(ctx))
	require.Equal(t, 1, src.Received())

	_, err := d.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, src.Received())
}

func TestDecoder_Close(t *testing.T) {
	ctx := context.Background()
	src := Replay(header("n"), batch(1), batch(2), wire.CompleteFrame{})
	d := NewDecoder(src)

	rows, err := d.Next(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	require.True(t, src.Closed())

	_, err = d.Next(ctx)
	require.ErrorIs(t, err, ErrClosed)
}

func TestDecoder_TransportError(t *testing.T) {
	ctx := context.Background()
	lost := status.Error(codes.Unavailable, "connection reset")
	d := NewDecoder(Replay(header("n"), batch(1)).FailWith(lost))

	values, err := drain(ctx, d)
	require.Equal(t, []int64{1}, values)
	require.ErrorIs(t, err, lost)
	require.Equal(t, codes.Unavailable, status.Code(errors.Unwrap(err)))
}

func TestDecoder_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDecoder(Replay(header("n"), wire.CompleteFrame{}))
	err := d.Start(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
