package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikmy/sqlrelay/internal/api"
	"github.com/nikmy/sqlrelay/internal/engine"
	"github.com/nikmy/sqlrelay/internal/pubsub"
	"github.com/nikmy/sqlrelay/internal/puller"
	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := loadConfig()
	if err != nil {
		stdlog.Panic(errors.WrapFail(err, "load config"))
	}

	log, err := logger.New(cfg.Environment)
	if err != nil {
		stdlog.Panic(errors.WrapFail(err, "init logger"))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGABRT)
	defer cancel()

	events := pubsub.Nop()
	if cfg.Events.Enabled() {
		events, err = pubsub.NewKafkaProducer(cfg.Events, log)
		if err != nil {
			log.Panic(errors.WrapFail(err, "init event producer"))
		}
	}

	eng, err := engine.New(ctx, cfg.Engine, log, engine.WithEvents(events))
	if err != nil {
		log.Panic(errors.WrapFail(err, "init engine"))
	}
	go puller.NewPuller("reaper", eng.ReapInterval(), eng, log).Run(ctx)

	srv := api.NewServer(cfg.API, log, eng)

	stopped := make(chan struct{})
	context.AfterFunc(ctx, func() {
		stdlog.Println("Graceful shutdown...")

		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()

		log.Warn(errors.WrapFail(srv.Shutdown(shutdownCtx), "shutdown server"))
		log.Warn(errors.WrapFail(events.Close(), "close event producer"))
		close(stopped)
	})

	stdlog.Printf("Serving on %s", cfg.API.HTTP.Addr)
	err = srv.Serve(ctx)
	if err != nil && ctx.Err() == nil {
		log.Panic(errors.WrapFail(err, "serve"))
	}

	<-stopped
	stdlog.Println("Shutdown complete")
}
