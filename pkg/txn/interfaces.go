package txn

import (
	"context"

	"github.com/nikmy/sqlrelay/pkg/frames"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

// Transport issues the remote calls of a session. Errors carry a grpc
// status: codes.NotFound when the server does not know the transaction,
// codes.Aborted when it expired.
type Transport interface {
	Begin(ctx context.Context, req wire.BeginRequest) (wire.BeginResponse, error)
	Query(ctx context.Context, req wire.QueryRequest) (frames.Source, error)
	Exec(ctx context.Context, req wire.QueryRequest) (wire.ExecResponse, error)
	Savepoint(ctx context.Context, req wire.SavepointRequest) (wire.SavepointResponse, error)
	Commit(ctx context.Context, req wire.ControlRequest) (wire.ControlResponse, error)
	Rollback(ctx context.Context, req wire.ControlRequest) (wire.ControlResponse, error)
}
