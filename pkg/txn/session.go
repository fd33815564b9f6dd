package txn

import (
	"context"
	"time"

	"github.com/nikmy/sqlrelay/pkg/codec"
	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/frames"
	"github.com/nikmy/sqlrelay/pkg/logger"
	"github.com/nikmy/sqlrelay/pkg/results"
	"github.com/nikmy/sqlrelay/pkg/sqlerr"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

// Session is one server-side transaction seen from the client:
// Unstarted, then Active after Begin, then Committed or RolledBack.
//
// A Session serves a single caller; it must not be used concurrently,
// and iterators it returns must be drained or closed before the next call.
type Session struct {
	transport Transport
	codec     *codec.Codec
	log       logger.Logger
	now       func() time.Time
	batchSize int

	id        string
	database  string
	lockMode  wire.LockMode
	expiresAt time.Time
	state     State
}

type Option func(*Session)

func WithLogger(log logger.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

func WithCodec(c *codec.Codec) Option {
	return func(s *Session) {
		s.codec = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithBatchSize sets the QueryStream chunk size for statements that do not
// choose one.
func WithBatchSize(n int) Option {
	return func(s *Session) {
		s.batchSize = n
	}
}

func NewSession(t Transport, opts ...Option) *Session {
	s := &Session{
		transport: t,
		codec:     codec.Default(),
		log:       logger.NewStub(),
		now:       time.Now,
		batchSize: results.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string              { return s.id }
func (s *Session) State() State            { return s.state }
func (s *Session) Database() string        { return s.database }
func (s *Session) LockMode() wire.LockMode { return s.lockMode }
func (s *Session) ExpiresAt() time.Time    { return s.expiresAt }

// Begin opens the transaction. A zero timeout leaves it to the server.
func (s *Session) Begin(ctx context.Context, database string, mode wire.LockMode, timeout time.Duration) error {
	if s.state != Unstarted {
		return s.stateError("begin")
	}

	parsed, ok := wire.ParseLockMode(string(mode))
	if !ok {
		return &wire.UnknownValueError{Kind: "lock mode", Value: string(mode)}
	}

	resp, err := s.transport.Begin(ctx, wire.BeginRequest{
		Database: database,
		LockMode: parsed,
		Timeout:  timeout,
	})
	if err != nil {
		return errors.WrapFail(err, "begin transaction")
	}
	if resp.TransactionID == "" {
		return sqlerr.ProtocolViolation("begin returned no transaction id")
	}

	s.id = resp.TransactionID
	s.database = database
	s.lockMode = parsed
	s.expiresAt = resp.ExpiresAt
	if s.expiresAt.IsZero() && timeout > 0 {
		s.expiresAt = s.now().Add(timeout)
	}
	s.state = Active

	s.log = s.log.WithFields("tx", s.id)
	s.log.Debugf("began transaction on %q (%s)", database, parsed)
	return nil
}

// Query runs the statement and buffers the whole result.
func (s *Session) Query(ctx context.Context, stmt Statement) (*results.Result, error) {
	dec, err := s.stream(ctx, "query", stmt)
	if err != nil {
		return nil, err
	}

	res, err := results.Buffer(ctx, dec, s.codec)
	if err != nil {
		return nil, s.callError(err, "query")
	}
	return res, nil
}

// Iterate runs the statement and returns its rows lazily. The call is issued
// at once; frames are read as the iterator advances.
func (s *Session) Iterate(ctx context.Context, stmt Statement) (*results.RowIterator, error) {
	dec, err := s.stream(ctx, "iterate", stmt)
	if err != nil {
		return nil, err
	}
	return results.NewRowIterator(dec, s.codec).MapErrors(s.streamError), nil
}

// QueryStream is like Iterate but yields chunks of stmt.BatchSize rows.
func (s *Session) QueryStream(ctx context.Context, stmt Statement) (*results.BatchIterator, error) {
	dec, err := s.stream(ctx, "stream query", stmt)
	if err != nil {
		return nil, err
	}

	size := stmt.BatchSize
	if size <= 0 {
		size = s.batchSize
	}
	rows := results.NewRowIterator(dec, s.codec).MapErrors(s.streamError)
	return results.NewBatchIterator(rows, size), nil
}

func (s *Session) Exec(ctx context.Context, stmt Statement) (ExecResult, error) {
	if err := s.usable("exec"); err != nil {
		return ExecResult{}, err
	}

	req, err := stmt.normalize(s.id)
	if err != nil {
		return ExecResult{}, err
	}

	resp, err := s.transport.Exec(ctx, req)
	if err != nil {
		return ExecResult{}, s.callError(err, "exec")
	}

	return ExecResult{
		RowsAffected: s.codec.Integer(resp.RowsAffected),
		LastInsertID: s.codec.Integer(resp.LastInsertID),
		Stats:        resp.Stats,
	}, nil
}

func (s *Session) Savepoint(ctx context.Context, name string, action wire.SavepointAction) (SavepointResult, error) {
	if err := s.usable("savepoint"); err != nil {
		return SavepointResult{}, err
	}
	if name == "" {
		return SavepointResult{}, errors.Error("savepoint name is empty")
	}
	if !action.Valid() {
		return SavepointResult{}, &wire.UnknownValueError{Kind: "savepoint action", Value: string(action)}
	}

	resp, err := s.transport.Savepoint(ctx, wire.SavepointRequest{
		TransactionID: s.id,
		Name:          name,
		Action:        action,
	})
	if err != nil {
		return SavepointResult{}, s.callError(err, "savepoint")
	}

	return SavepointResult{
		Success: resp.Success,
		Name:    resp.Name,
		Action:  resp.Action,
	}, nil
}

// Commit finalizes the session whatever the outcome; a failed commit is
// never retried.
func (s *Session) Commit(ctx context.Context) error {
	if s.state != Active {
		return s.stateError("commit")
	}
	s.state = Committed

	if s.expired() {
		s.log.Warnf("commit after expiry at %s", s.expiresAt.Format(time.RFC3339))
		return s.expiredError()
	}

	resp, err := s.transport.Commit(ctx, wire.ControlRequest{TransactionID: s.id})
	if err != nil {
		return s.callError(err, "commit")
	}
	if !resp.Success {
		return errors.Failf("commit transaction %s", s.id)
	}

	s.log.Debugf("committed")
	return nil
}

// Rollback may be called in any state. It reports false without a remote
// call when there is nothing to roll back, and false without error when the
// server no longer knows the transaction.
func (s *Session) Rollback(ctx context.Context) (bool, error) {
	if s.state != Active {
		return false, nil
	}
	s.state = RolledBack

	resp, err := s.transport.Rollback(ctx, wire.ControlRequest{TransactionID: s.id})
	if sqlerr.IsGone(err) || sqlerr.IsExpired(err) {
		s.log.Warn(errors.Wrap(err, "rollback of a transaction the server dropped"))
		return false, nil
	}
	if err != nil {
		return false, errors.WrapFail(err, "rollback transaction")
	}

	s.log.Debugf("rolled back")
	return resp.Success, nil
}

func (s *Session) stream(ctx context.Context, op string, stmt Statement) (*frames.Decoder, error) {
	if err := s.usable(op); err != nil {
		return nil, err
	}

	req, err := stmt.normalize(s.id)
	if err != nil {
		return nil, err
	}

	src, err := s.transport.Query(ctx, req)
	if err != nil {
		return nil, s.callError(err, op)
	}
	return frames.NewDecoder(src), nil
}

func (s *Session) usable(op string) error {
	if s.state != Active {
		return s.stateError(op)
	}
	if s.expired() {
		return s.expiredError()
	}
	return nil
}

func (s *Session) expired() bool {
	return !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt)
}

func (s *Session) stateError(op string) error {
	return &sqlerr.TransactionStateError{Op: op, State: s.state.String()}
}

func (s *Session) expiredError() error {
	return &sqlerr.TransactionExpiredError{TransactionID: s.id, ExpiredAt: s.expiresAt}
}

// streamError keeps stream failures as they are except for expiry.
func (s *Session) streamError(err error) error {
	if sqlerr.IsExpired(err) {
		return s.expiredError()
	}
	return err
}

func (s *Session) callError(err error, op string) error {
	if sqlerr.IsExpired(err) {
		return s.expiredError()
	}
	return errors.WrapFail(err, op)
}
