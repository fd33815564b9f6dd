package engine

import (
	"context"
	"database/sql/driver"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nikmy/sqlrelay/internal/pubsub"
	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/frames"
	"github.com/nikmy/sqlrelay/pkg/logger"
	"github.com/nikmy/sqlrelay/pkg/sqlerr"
	"github.com/nikmy/sqlrelay/pkg/txn"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

var _ txn.Transport = (*Engine)(nil)

// Engine runs transactions against local sqlite databases. Every
// transaction owns one connection until it is committed, rolled back or
// reaped after its deadline.
type Engine struct {
	cfg Config
	log logger.Logger
	now func() time.Time
	dbs map[string]*sqlx.DB

	events pubsub.Publisher

	mu      sync.Mutex
	active  map[string]*transaction
	expired map[string]time.Time
}

type transaction struct {
	id        string
	database  string
	conn      *sqlx.Conn
	expiresAt time.Time
	deadline  time.Time

	// mu serializes statements; a new statement aborts an open stream.
	mu     sync.Mutex
	stream *rowSource
}

type Option func(*Engine)

// WithEvents publishes the lifecycle of every transaction. The engine does
// not close the publisher.
func WithEvents(p pubsub.Publisher) Option {
	return func(e *Engine) {
		e.events = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func New(ctx context.Context, cfg Config, log logger.Logger, opts ...Option) (*Engine, error) {
	cfg = cfg.withDefaults()
	err := cfg.Validate()
	if err != nil {
		return nil, errors.WrapFail(err, "validate engine config")
	}

	e := &Engine{
		cfg:     cfg,
		log:     log.With("engine"),
		now:     time.Now,
		events:  pubsub.Nop(),
		dbs:     make(map[string]*sqlx.DB, len(cfg.Databases)),
		active:  make(map[string]*transaction),
		expired: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(e)
	}

	for name, dsn := range cfg.Databases {
		db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
		if err != nil {
			return nil, errors.Join(
				errors.WrapFailf(err, "open database %q", name),
				e.closeDatabases(),
			)
		}
		e.dbs[name] = db
	}

	return e, nil
}

func (e *Engine) Begin(ctx context.Context, req wire.BeginRequest) (wire.BeginResponse, error) {
	db, ok := e.dbs[req.Database]
	if !ok {
		return wire.BeginResponse{}, status.Errorf(codes.InvalidArgument, "unknown database %q", req.Database)
	}

	mode, ok := wire.ParseLockMode(string(req.LockMode))
	if !ok {
		return wire.BeginResponse{}, status.Errorf(codes.InvalidArgument, "unknown lock mode %q", req.LockMode)
	}

	conn, err := db.Connx(ctx)
	if err != nil {
		return wire.BeginResponse{}, errors.WrapFail(err, "get connection")
	}

	_, err = conn.ExecContext(ctx, "BEGIN "+strings.ToUpper(string(mode)))
	if err != nil {
		return wire.BeginResponse{}, errors.Join(sqlError(err, "BEGIN"), conn.Close())
	}

	timeout := e.cfg.timeout(req.Timeout)
	tx := &transaction{
		id:        uuid.NewString(),
		database:  req.Database,
		conn:      conn,
		expiresAt: e.now().Add(timeout),
		deadline:  time.Now().Add(timeout),
	}

	e.mu.Lock()
	e.active[tx.id] = tx
	e.mu.Unlock()

	e.publish(pubsub.EventBegin, tx, nil)
	e.log.Debugf("began %s on %q (%s) until %s", tx.id, tx.database, mode, tx.expiresAt.Format(time.RFC3339))
	return wire.BeginResponse{TransactionID: tx.id, ExpiresAt: tx.expiresAt}, nil
}

// Query starts a statement and streams its result. Statement failures are
// reported in the stream, not as an error.
func (e *Engine) Query(ctx context.Context, req wire.QueryRequest) (frames.Source, error) {
	tx, err := e.acquire(req.TransactionID)
	if err != nil {
		return nil, err
	}
	defer tx.mu.Unlock()

	batchRows := e.cfg.batchRows(req.Hints.BatchRows)

	// The stream outlives this call, so it only inherits values from ctx.
	sctx, cancel := tx.statementContext(context.WithoutCancel(ctx), req.Hints)

	rows, err := tx.conn.QueryxContext(sctx, req.SQL, toArgs(req.Parameters)...)
	if err != nil {
		cancel()
		e.log.Infof("statement failed in %s: %s", tx.id, err)
		return frames.Replay(errorFrame(err, req.SQL)), nil
	}

	tx.stream = &rowSource{
		tx:        tx,
		rows:      rows,
		sql:       req.SQL,
		ctx:       sctx,
		cancel:    cancel,
		batchRows: batchRows,
		now:       e.now,
		started:   e.now(),
	}
	return tx.stream, nil
}

func (e *Engine) Exec(ctx context.Context, req wire.QueryRequest) (wire.ExecResponse, error) {
	tx, err := e.acquire(req.TransactionID)
	if err != nil {
		return wire.ExecResponse{}, err
	}
	defer tx.mu.Unlock()

	ctx, cancel := tx.statementContext(ctx, req.Hints)
	defer cancel()

	started := e.now()
	res, err := tx.conn.ExecContext(ctx, req.SQL, toArgs(req.Parameters)...)
	if err != nil {
		if tx.expired(e.now()) {
			return wire.ExecResponse{}, sqlerr.Expired(tx.id)
		}
		e.log.Infof("statement failed in %s: %s", tx.id, err)
		return wire.ExecResponse{}, sqlError(err, req.SQL)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return wire.ExecResponse{}, errors.WrapFail(err, "get rows affected")
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return wire.ExecResponse{}, errors.WrapFail(err, "get last insert id")
	}

	return wire.ExecResponse{
		RowsAffected: affected,
		LastInsertID: lastID,
		Stats: &wire.Stats{
			RowsAffected: affected,
			LastInsertID: lastID,
			Duration:     e.now().Sub(started),
		},
	}, nil
}

func (e *Engine) Savepoint(ctx context.Context, req wire.SavepointRequest) (wire.SavepointResponse, error) {
	var query string
	switch req.Action {
	case wire.SavepointCreate:
		query = "SAVEPOINT " + quoteIdent(req.Name)
	case wire.SavepointRelease:
		query = "RELEASE SAVEPOINT " + quoteIdent(req.Name)
	case wire.SavepointRollback:
		query = "ROLLBACK TO SAVEPOINT " + quoteIdent(req.Name)
	default:
		return wire.SavepointResponse{}, status.Errorf(codes.InvalidArgument, "unknown savepoint action %q", req.Action)
	}
	if req.Name == "" {
		return wire.SavepointResponse{}, status.Error(codes.InvalidArgument, "empty savepoint name")
	}

	tx, err := e.acquire(req.TransactionID)
	if err != nil {
		return wire.SavepointResponse{}, err
	}
	defer tx.mu.Unlock()

	ctx, cancel := tx.statementContext(ctx, wire.Hints{})
	defer cancel()

	_, err = tx.conn.ExecContext(ctx, query)
	if err != nil {
		return wire.SavepointResponse{}, sqlError(err, query)
	}

	return wire.SavepointResponse{Success: true, Name: req.Name, Action: req.Action}, nil
}

// Commit ends the transaction whatever the outcome: a transaction whose
// commit failed is rolled back and forgotten.
func (e *Engine) Commit(ctx context.Context, req wire.ControlRequest) (wire.ControlResponse, error) {
	tx, err := e.acquire(req.TransactionID)
	if err != nil {
		return wire.ControlResponse{}, err
	}
	e.forget(tx.id, false)
	defer tx.mu.Unlock()

	_, err = tx.conn.ExecContext(ctx, "COMMIT")
	if err != nil {
		e.log.Warn(errors.WrapFailf(err, "commit %s", tx.id))
		e.log.Error(tx.discard())
		e.publish(pubsub.EventRollback, tx, err)
		return wire.ControlResponse{}, sqlError(err, "COMMIT")
	}

	e.publish(pubsub.EventCommit, tx, nil)
	e.log.Debugf("committed %s", tx.id)
	return wire.ControlResponse{Success: true}, errors.WrapFail(tx.conn.Close(), "release connection")
}

func (e *Engine) Rollback(ctx context.Context, req wire.ControlRequest) (wire.ControlResponse, error) {
	tx, err := e.acquire(req.TransactionID)
	if err != nil {
		return wire.ControlResponse{}, err
	}
	e.forget(tx.id, false)
	defer tx.mu.Unlock()

	err = tx.discard()
	e.publish(pubsub.EventRollback, tx, err)
	if err != nil {
		return wire.ControlResponse{}, err
	}

	e.log.Debugf("rolled back %s", tx.id)
	return wire.ControlResponse{Success: true}, nil
}

// Active is the number of open transactions.
func (e *Engine) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// Close rolls back every open transaction and closes the databases.
func (e *Engine) Close() error {
	e.mu.Lock()
	open := make([]*transaction, 0, len(e.active))
	for id, tx := range e.active {
		open = append(open, tx)
		delete(e.active, id)
	}
	e.mu.Unlock()

	errs := make([]error, 0, len(open)+1)
	for _, tx := range open {
		tx.lock()
		errs = append(errs, tx.discard())
		tx.mu.Unlock()
	}
	errs = append(errs, e.closeDatabases())

	return errors.Collapse(errs)
}

func (e *Engine) closeDatabases() error {
	errs := make([]error, 0, len(e.dbs))
	for name, db := range e.dbs {
		errs = append(errs, errors.WrapFailf(db.Close(), "close database %q", name))
	}
	return errors.Collapse(errs)
}

// acquire returns the transaction locked for one statement.
func (e *Engine) acquire(id string) (*transaction, error) {
	e.mu.Lock()
	tx, ok := e.active[id]
	if !ok {
		_, wasExpired := e.expired[id]
		e.mu.Unlock()
		if wasExpired {
			return nil, sqlerr.Expired(id)
		}
		return nil, sqlerr.Gone(id)
	}

	if tx.expired(e.now()) {
		delete(e.active, id)
		e.expired[id] = e.now().Add(e.cfg.ExpiredRetention)
		e.mu.Unlock()

		tx.lock()
		err := tx.discard()
		tx.mu.Unlock()

		e.log.Error(errors.WrapFailf(err, "discard expired %s", id))
		e.publish(pubsub.EventExpire, tx, err)
		return nil, sqlerr.Expired(id)
	}
	e.mu.Unlock()

	tx.lock()
	return tx, nil
}

func (e *Engine) publish(kind pubsub.EventKind, tx *transaction, cause error) {
	ev := pubsub.Event{
		Kind:          kind,
		TransactionID: tx.id,
		Database:      tx.database,
		At:            e.now(),
	}
	if kind == pubsub.EventBegin {
		ev.ExpiresAt = tx.expiresAt
	}
	if cause != nil {
		ev.Error = cause.Error()
	}

	err := e.events.Publish(context.Background(), ev)
	e.log.Warn(errors.WrapFailf(err, "publish %s event of %s", kind, tx.id))
}

func (e *Engine) forget(id string, expired bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.active, id)
	if expired {
		e.expired[id] = e.now().Add(e.cfg.ExpiredRetention)
	}
}

func (tx *transaction) lock() {
	tx.mu.Lock()
	if tx.stream != nil {
		tx.stream.abort()
		tx.stream = nil
	}
}

func (tx *transaction) expired(now time.Time) bool {
	return !now.Before(tx.expiresAt)
}

func (tx *transaction) statementContext(parent context.Context, h wire.Hints) (context.Context, context.CancelFunc) {
	deadline := tx.deadline
	if h.Timeout > 0 {
		if d := time.Now().Add(h.Timeout); d.Before(deadline) {
			deadline = d
		}
	}
	return context.WithDeadline(parent, deadline)
}

// discard rolls back and releases the connection. A connection that could
// not be rolled back is dropped from the pool.
func (tx *transaction) discard() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := tx.conn.ExecContext(ctx, "ROLLBACK")
	if err != nil {
		_ = tx.conn.Raw(func(any) error { return driver.ErrBadConn })
		return sqlError(err, "ROLLBACK")
	}
	return errors.WrapFail(tx.conn.Close(), "release connection")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
