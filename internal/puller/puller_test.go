package puller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/logger"
)

type workerFunc func(ctx context.Context) error

func (f workerFunc) DoWork(ctx context.Context) error { return f(ctx) }

func TestPuller_Run(t *testing.T) {
	var rounds, warnings atomic.Int32

	log := zap.NewExample(zap.Hooks(func(e zapcore.Entry) error {
		if e.Level == zapcore.WarnLevel {
			warnings.Add(1)
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := workerFunc(func(context.Context) error {
		n := rounds.Add(1)
		if n == 3 {
			cancel()
		}
		if n%2 == 1 {
			return errors.Error("round failed")
		}
		return nil
	})

	done := make(chan struct{})
	go func() {
		NewPuller("reaper", time.Millisecond, w, logger.FromZap(log)).Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("puller did not stop")
	}

	require.GreaterOrEqual(t, rounds.Load(), int32(3))
	require.GreaterOrEqual(t, warnings.Load(), int32(2))
}
