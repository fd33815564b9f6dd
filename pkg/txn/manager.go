package txn

import (
	"context"
	"time"

	"github.com/nikmy/sqlrelay/pkg/codec"
	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/logger"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

// Manager opens sessions with shared defaults.
type Manager struct {
	cfg       Config
	transport Transport
	codec     *codec.Codec
	log       logger.Logger
}

func NewManager(cfg Config, t Transport, log logger.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapFail(err, "create transaction manager")
	}

	return &Manager{
		cfg:       cfg,
		transport: t,
		codec:     codec.New(cfg.Policy),
		log:       log.With("txn"),
	}, nil
}

type beginParams struct {
	database string
	lockMode wire.LockMode
	timeout  time.Duration
}

type BeginOption func(*beginParams)

func OnDatabase(name string) BeginOption {
	return func(p *beginParams) {
		p.database = name
	}
}

func WithLockMode(mode wire.LockMode) BeginOption {
	return func(p *beginParams) {
		p.lockMode = mode
	}
}

func WithTimeout(d time.Duration) BeginOption {
	return func(p *beginParams) {
		p.timeout = d
	}
}

func (m *Manager) Session() *Session {
	return NewSession(m.transport,
		WithCodec(m.codec),
		WithLogger(m.log),
		WithBatchSize(m.cfg.BatchSize),
	)
}

// Begin returns an active session.
func (m *Manager) Begin(ctx context.Context, opts ...BeginOption) (*Session, error) {
	p := beginParams{
		database: m.cfg.Database,
		lockMode: m.cfg.LockMode,
		timeout:  m.cfg.Timeout,
	}
	for _, opt := range opts {
		opt(&p)
	}

	s := m.Session()
	err := s.Begin(ctx, p.database, p.lockMode, p.timeout)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Run executes do inside a transaction. It commits when do succeeds and
// rolls back when do fails or panics.
func (m *Manager) Run(ctx context.Context, do func(ctx context.Context, s *Session) error, opts ...BeginOption) (err error) {
	s, err := m.Begin(ctx, opts...)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			m.rollback(ctx, s)
			panic(p)
		}
	}()

	err = do(ctx, s)
	if err != nil {
		m.log.Info(errors.Wrap(err, "rolling back transaction"))
		m.rollback(ctx, s)
		return err
	}

	if s.State().Finalized() {
		return nil
	}

	err = s.Commit(ctx)
	if err != nil {
		m.log.Error(errors.WrapFail(err, "commit transaction"))
		return err
	}

	return nil
}

func (m *Manager) rollback(ctx context.Context, s *Session) {
	_, err := s.Rollback(context.WithoutCancel(ctx))
	m.log.Error(errors.WrapFail(err, "rollback transaction"))
}
