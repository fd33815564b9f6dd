package api

import (
	"context"

	"github.com/nikmy/sqlrelay/pkg/txn"
)

type Server interface {
	Serve(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Backend executes the transaction calls received over HTTP.
type Backend interface {
	txn.Transport
	Close() error
}
