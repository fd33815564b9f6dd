package engine

import (
	"context"
	"time"

	"github.com/nikmy/sqlrelay/internal/pubsub"
	"github.com/nikmy/sqlrelay/pkg/errors"
)

// DoWork rolls back transactions past their deadline and forgets the ids
// of those reaped longer than ExpiredRetention ago.
func (e *Engine) DoWork(context.Context) error {
	now := e.now()

	e.mu.Lock()
	reaped := make([]*transaction, 0)
	for id, tx := range e.active {
		if tx.expired(now) {
			reaped = append(reaped, tx)
			delete(e.active, id)
			e.expired[id] = now.Add(e.cfg.ExpiredRetention)
		}
	}
	for id, forgetAt := range e.expired {
		if !now.Before(forgetAt) {
			delete(e.expired, id)
		}
	}
	e.mu.Unlock()

	errs := make([]error, 0, len(reaped))
	for _, tx := range reaped {
		tx.lock()
		err := tx.discard()
		tx.mu.Unlock()
		e.publish(pubsub.EventExpire, tx, err)

		if err != nil {
			errs = append(errs, errors.WrapFailf(err, "reap %s", tx.id))
			continue
		}
		e.log.Infof("reaped %s expired at %s", tx.id, tx.expiresAt.Format(time.RFC3339))
	}

	return errors.Collapse(errs)
}

// ReapInterval is how often DoWork should run.
func (e *Engine) ReapInterval() time.Duration {
	return e.cfg.ReapInterval
}
