package engine

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/frames"
	"github.com/nikmy/sqlrelay/pkg/sqlerr"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

// rowSource streams one statement lazily: every Recv steps the cursor for
// at most one batch.
type rowSource struct {
	tx        *transaction
	rows      *sqlx.Rows
	sql       string
	ctx       context.Context
	cancel    context.CancelFunc
	batchRows int
	now       func() time.Time
	started   time.Time

	mu         sync.Mutex
	sentHeader bool
	pending    []wire.Frame
	finished   bool
	closed     bool
	aborted    bool
	read       int64
}

func (s *rowSource) Recv(ctx context.Context) (wire.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.aborted:
		return nil, status.Error(codes.Canceled, "statement was superseded by a newer call")
	case s.closed:
		return nil, frames.ErrClosed
	case len(s.pending) > 0:
		f := s.pending[0]
		s.pending = s.pending[1:]
		return f, nil
	case s.finished:
		return nil, io.EOF
	case !s.sentHeader:
		s.sentHeader = true
		return s.header()
	default:
		return s.batch()
	}
}

func (s *rowSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.release()
}

// abort interrupts a running step and invalidates the stream.
func (s *rowSource) abort() {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed && !s.finished {
		s.aborted = true
	}
	_ = s.release()
}

func (s *rowSource) header() (wire.Frame, error) {
	types, err := s.rows.ColumnTypes()
	if err != nil {
		return s.fail(err)
	}
	if len(types) == 0 {
		return s.statement()
	}

	cols := make([]wire.Column, len(types))
	for i, ct := range types {
		cols[i] = wire.ColumnOf(ct.Name(), ct.DatabaseTypeName())
	}
	return wire.HeaderFrame{Columns: cols}, nil
}

// statement finishes a statement without result columns and reports its
// changes in the complete frame.
func (s *rowSource) statement() (wire.Frame, error) {
	for s.rows.Next() {
	}
	if err := s.rows.Err(); err != nil {
		return s.fail(err)
	}
	if err := s.rows.Close(); err != nil {
		return s.fail(err)
	}

	var stats wire.Stats
	err := s.tx.conn.QueryRowxContext(s.ctx, "SELECT changes(), last_insert_rowid()").
		Scan(&stats.RowsAffected, &stats.LastInsertID)
	if err != nil {
		return s.fail(err)
	}

	stats.Duration = s.now().Sub(s.started)
	s.finished = true
	_ = s.release()
	return wire.CompleteFrame{Stats: stats}, nil
}

func (s *rowSource) batch() (wire.Frame, error) {
	var rows []wire.Row
	for len(rows) < s.batchRows && s.rows.Next() {
		values, err := s.rows.SliceScan()
		if err != nil {
			return s.failAfter(rows, err)
		}
		rows = append(rows, toRow(values))
	}
	s.read += int64(len(rows))

	if len(rows) == s.batchRows {
		return wire.BatchFrame{Rows: rows}, nil
	}

	if err := s.rows.Err(); err != nil {
		return s.failAfter(rows, err)
	}

	s.finished = true
	_ = s.release()

	complete := wire.CompleteFrame{Stats: wire.Stats{
		RowsRead: s.read,
		Duration: s.now().Sub(s.started),
	}}
	if len(rows) == 0 {
		return complete, nil
	}
	s.pending = append(s.pending, complete)
	return wire.BatchFrame{Rows: rows}, nil
}

func (s *rowSource) failAfter(rows []wire.Row, err error) (wire.Frame, error) {
	f, ferr := s.fail(err)
	if ferr != nil || len(rows) == 0 {
		return f, ferr
	}
	s.pending = append(s.pending, f)
	return wire.BatchFrame{Rows: rows}, nil
}

// fail ends the stream with an error frame, or with an expiry error when
// the transaction ran out of time mid-statement.
func (s *rowSource) fail(err error) (wire.Frame, error) {
	s.finished = true
	_ = s.release()

	if errors.Is(err, context.DeadlineExceeded) && s.tx.expired(s.now()) {
		return nil, sqlerr.Expired(s.tx.id)
	}
	return errorFrame(err, s.sql), nil
}

func (s *rowSource) release() error {
	err := s.rows.Close()
	s.cancel()
	return errors.WrapFail(err, "close rows")
}
