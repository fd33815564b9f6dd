package httpx

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/frames"
	"github.com/nikmy/sqlrelay/pkg/sqlerr"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

func newClient(t *testing.T, handler fasthttp.RequestHandler) *Client {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	c, err := New(Config{Endpoint: "http://relay/"}, WithDialer(func(string) (net.Conn, error) { return ln.Dial() }))
	require.NoError(t, err)
	return c
}

func reply(ctx *fasthttp.RequestCtx, code int, msg any) {
	data, err := wire.Marshal(msg)
	if err != nil {
		panic(err)
	}
	ctx.SetStatusCode(code)
	ctx.SetContentType(wire.ContentType)
	ctx.SetBody(data)
}

func streamFrames(ctx *fasthttp.RequestCtx, fs ...wire.Frame) {
	ctx.SetContentType(wire.ContentType)
	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		for _, f := range fs {
			if err := wire.WriteFrame(w, f); err != nil {
				return
			}
			_ = w.Flush()
		}
	})
}

func TestClient_Begin(t *testing.T) {
	c := newClient(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != wire.PathBegin || string(ctx.Request.Header.ContentType()) != wire.ContentType {
			ctx.SetStatusCode(fasthttp.StatusTeapot)
			return
		}

		var req wire.BeginRequest
		if err := wire.Unmarshal(ctx.PostBody(), &req); err != nil || req.Database != "main" {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		reply(ctx, fasthttp.StatusOK, wire.BeginResponse{TransactionID: "tx-1"})
	})

	resp, err := c.Begin(context.Background(), wire.BeginRequest{Database: "main", LockMode: wire.LockDeferred})
	require.NoError(t, err)
	require.Equal(t, "tx-1", resp.TransactionID)
}

func TestClient_Failures(t *testing.T) {
	type testcase struct {
		name    string
		handler fasthttp.RequestHandler
		check   func(t *testing.T, err error)
	}

	tests := [...]testcase{
		{
			name: "not found",
			handler: func(ctx *fasthttp.RequestCtx) {
				reply(ctx, fasthttp.StatusNotFound, wire.Failure{Code: uint32(codes.NotFound), Message: "no tx"})
			},
			check: func(t *testing.T, err error) {
				require.True(t, sqlerr.IsGone(err))
			},
		},
		{
			name: "expired",
			handler: func(ctx *fasthttp.RequestCtx) {
				reply(ctx, fasthttp.StatusConflict, wire.Failure{Code: uint32(codes.Aborted), Message: "expired"})
			},
			check: func(t *testing.T, err error) {
				require.True(t, sqlerr.IsExpired(err))
			},
		},
		{
			name: "sql error",
			handler: func(ctx *fasthttp.RequestCtx) {
				reply(ctx, fasthttp.StatusUnprocessableEntity, wire.Failure{
					Code:    uint32(codes.Unknown),
					Message: "no such table: t",
					SQL:     "DELETE FROM t",
					SQLCode: "SQLITE_ERROR",
				})
			},
			check: func(t *testing.T, err error) {
				sqlErr, ok := errors.AsType[*sqlerr.SQLExecutionError](err)
				require.True(t, ok)
				require.Equal(t, "SQLITE_ERROR", sqlErr.Code)
				require.Equal(t, "DELETE FROM t", sqlErr.SQL)
			},
		},
		{
			name: "not a failure document",
			handler: func(ctx *fasthttp.RequestCtx) {
				ctx.SetStatusCode(fasthttp.StatusBadGateway)
				ctx.SetBodyString("upstream down")
			},
			check: func(t *testing.T, err error) {
				require.Equal(t, codes.Unknown, status.Code(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, tt.handler)
			_, err := c.Exec(context.Background(), wire.QueryRequest{TransactionID: "tx-1", SQL: "DELETE FROM t"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_Canceled(t *testing.T) {
	c := newClient(t, func(ctx *fasthttp.RequestCtx) {
		reply(ctx, fasthttp.StatusOK, wire.ControlResponse{Success: true})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Commit(ctx, wire.ControlRequest{TransactionID: "tx-1"})
	require.Equal(t, codes.Canceled, status.Code(err))
}

func TestClient_Unreachable(t *testing.T) {
	c, err := New(Config{Endpoint: "http://relay"}, WithDialer(func(string) (net.Conn, error) {
		return nil, errors.Error("connection refused")
	}))
	require.NoError(t, err)

	_, err = c.Rollback(context.Background(), wire.ControlRequest{TransactionID: "tx-1"})
	require.Equal(t, codes.Unavailable, status.Code(err))
}

func TestClient_Query(t *testing.T) {
	c := newClient(t, func(ctx *fasthttp.RequestCtx) {
		streamFrames(ctx,
			wire.HeaderFrame{Columns: []wire.Column{wire.ColumnOf("id", "INTEGER")}},
			wire.BatchFrame{Rows: []wire.Row{{wire.Integer(1)}, {wire.Integer(2)}}},
			wire.CompleteFrame{Stats: wire.Stats{RowsRead: 2}},
		)
	})

	ctx := context.Background()
	src, err := c.Query(ctx, wire.QueryRequest{TransactionID: "tx-1", SQL: "SELECT id FROM t"})
	require.NoError(t, err)

	dec := frames.NewDecoder(src)
	rows, err := dec.Next(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	_, err = dec.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, int64(2), dec.Stats().RowsRead)
	require.NoError(t, dec.Close())
}

func TestClient_QueryStreamFailure(t *testing.T) {
	c := newClient(t, func(ctx *fasthttp.RequestCtx) {
		streamFrames(ctx,
			wire.HeaderFrame{Columns: []wire.Column{wire.ColumnOf("id", "INTEGER")}},
			wire.ErrorFrame{Message: "transaction expired", Code: sqlerr.StreamCode(sqlerr.Expired("tx-1"))},
		)
	})

	ctx := context.Background()
	src, err := c.Query(ctx, wire.QueryRequest{TransactionID: "tx-1", SQL: "SELECT id FROM t"})
	require.NoError(t, err)

	dec := frames.NewDecoder(src)
	_, err = dec.Next(ctx)
	require.True(t, sqlerr.IsExpired(err))
	require.NoError(t, dec.Close())
}

func TestClient_QueryRejected(t *testing.T) {
	c := newClient(t, func(ctx *fasthttp.RequestCtx) {
		reply(ctx, fasthttp.StatusNotFound, wire.Failure{Code: uint32(codes.NotFound), Message: "no tx"})
	})

	src, err := c.Query(context.Background(), wire.QueryRequest{TransactionID: "tx-1", SQL: "SELECT 1"})
	require.Nil(t, src)
	require.True(t, sqlerr.IsGone(err))
}

func TestConfig_Validate(t *testing.T) {
	_, err := New(Config{Endpoint: "relay:8080"})
	require.Error(t, err)

	cfg := Config{Endpoint: "https://relay/"}.withDefaults()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "https://relay", cfg.Endpoint)
	require.Equal(t, defaultTimeout, cfg.Timeout)
}
