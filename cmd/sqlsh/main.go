// Command sqlsh runs statements in one relay transaction and prints the
// results as JSON lines.
package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/logger"
	"github.com/nikmy/sqlrelay/pkg/transport/httpx"
	"github.com/nikmy/sqlrelay/pkg/txn"
)

func main() {
	cfg, opts, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.Environment)
	if err != nil {
		stdlog.Panic(errors.WrapFail(err, "init logger"))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := httpx.New(cfg.Transport)
	if err != nil {
		log.Panic(errors.WrapFail(err, "init transport"))
	}

	m, err := txn.NewManager(cfg.Session, client, log)
	if err != nil {
		log.Panic(errors.WrapFail(err, "init transaction manager"))
	}

	out := newPrinter(os.Stdout)
	err = m.Run(ctx, func(ctx context.Context, s *txn.Session) error {
		for _, sql := range opts.statements {
			err := out.run(ctx, s, sql)
			if err != nil {
				return err
			}
		}

		if opts.dryRun {
			_, err := s.Rollback(ctx)
			return err
		}
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
