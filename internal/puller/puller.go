package puller

import (
	"context"
	"time"

	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/logger"
	"github.com/nikmy/sqlrelay/pkg/tools/await"
)

func NewPuller(name string, interval time.Duration, w Worker, log logger.Logger) Puller {
	return &puller{
		name:     name,
		interval: interval,
		w:        w,
		log:      log.With(name),
	}
}

type puller struct {
	name     string
	interval time.Duration
	w        Worker
	log      logger.Logger
}

// Run calls DoWork every interval until ctx is done. Failed rounds are
// logged and do not stop the loop.
func (p *puller) Run(ctx context.Context) {
	tick := await.Tick(p.interval)
	defer tick.Stop()

	for tick.Await(ctx) {
		p.log.Warn(errors.WrapFailf(p.w.DoWork(ctx), "do %s work", p.name))
	}
}
