package httpx

import (
	"bytes"
	"context"
	"io"
	"net"
	"time"

	"github.com/valyala/fasthttp"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/frames"
	"github.com/nikmy/sqlrelay/pkg/sqlerr"
	"github.com/nikmy/sqlrelay/pkg/txn"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

var _ txn.Transport = (*Client)(nil)

type Option func(*fasthttp.Client)

// WithDialer replaces the TCP dialer, e.g. with an in-memory listener.
func WithDialer(dial func(addr string) (net.Conn, error)) Option {
	return func(c *fasthttp.Client) { c.Dial = dial }
}

// Client is a txn.Transport talking to a relay gateway over HTTP.
type Client struct {
	cfg  Config
	http *fasthttp.Client
}

func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapFail(err, "validate http transport config")
	}

	hc := &fasthttp.Client{
		Name:                     "sqlrelay",
		MaxConnsPerHost:          cfg.MaxConns,
		StreamResponseBody:       true,
		NoDefaultUserAgentHeader: true,
	}
	for _, opt := range opts {
		opt(hc)
	}

	return &Client{cfg: cfg, http: hc}, nil
}

func (c *Client) Begin(ctx context.Context, req wire.BeginRequest) (wire.BeginResponse, error) {
	var resp wire.BeginResponse
	return resp, c.call(ctx, wire.PathBegin, req, &resp)
}

func (c *Client) Exec(ctx context.Context, req wire.QueryRequest) (wire.ExecResponse, error) {
	var resp wire.ExecResponse
	return resp, c.call(ctx, wire.PathExec, req, &resp)
}

func (c *Client) Savepoint(ctx context.Context, req wire.SavepointRequest) (wire.SavepointResponse, error) {
	var resp wire.SavepointResponse
	return resp, c.call(ctx, wire.PathSavepoint, req, &resp)
}

func (c *Client) Commit(ctx context.Context, req wire.ControlRequest) (wire.ControlResponse, error) {
	var resp wire.ControlResponse
	return resp, c.call(ctx, wire.PathCommit, req, &resp)
}

func (c *Client) Rollback(ctx context.Context, req wire.ControlRequest) (wire.ControlResponse, error) {
	var resp wire.ControlResponse
	return resp, c.call(ctx, wire.PathRollback, req, &resp)
}

// Query starts a frame stream. The returned source owns the connection
// until it is closed.
func (c *Client) Query(ctx context.Context, req wire.QueryRequest) (frames.Source, error) {
	body, err := wire.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(httpReq)

	c.prepare(httpReq, wire.PathQuery, body)
	// a stream abandoned halfway leaves unread frames on the connection
	httpReq.SetConnectionClose()

	resp := fasthttp.AcquireResponse()
	err = c.do(ctx, httpReq, resp, 0)
	if err != nil {
		fasthttp.ReleaseResponse(resp)
		return nil, err
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		err = decodeFailure(resp.StatusCode(), resp.Body())
		fasthttp.ReleaseResponse(resp)
		return nil, err
	}

	return streamSource{Source: frames.FromReader(newBodyReader(resp))}, nil
}

func (c *Client) call(ctx context.Context, path string, in, out any) error {
	body, err := wire.Marshal(in)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	c.prepare(req, path, body)
	err = c.do(ctx, req, resp, c.cfg.Timeout)
	if err != nil {
		return err
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return decodeFailure(resp.StatusCode(), resp.Body())
	}
	return wire.Unmarshal(resp.Body(), out)
}

func (c *Client) prepare(req *fasthttp.Request, path string, body []byte) {
	req.SetRequestURI(c.cfg.Endpoint + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(wire.ContentType)
	req.SetBodyRaw(body)
}

// do sends the request within the context deadline, shortened to timeout
// when it is positive.
func (c *Client) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return status.FromContextError(err).Err()
	}

	deadline, ok := ctx.Deadline()
	if timeout > 0 && (!ok || time.Until(deadline) > timeout) {
		deadline, ok = time.Now().Add(timeout), true
	}

	var err error
	if ok {
		err = c.http.DoDeadline(req, resp, deadline)
	} else {
		err = c.http.Do(req, resp)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, fasthttp.ErrTimeout):
		return status.Errorf(codes.DeadlineExceeded, "call %s: %v", req.URI().Path(), err)
	default:
		return status.Errorf(codes.Unavailable, "call %s: %v", req.URI().Path(), err)
	}
}

func decodeFailure(httpStatus int, body []byte) error {
	var f wire.Failure
	if err := wire.Unmarshal(body, &f); err != nil {
		return status.Errorf(codes.Unknown, "unexpected http status %d", httpStatus)
	}

	if f.SQLCode != "" {
		return &sqlerr.SQLExecutionError{Message: f.Message, SQL: f.SQL, Code: f.SQLCode}
	}
	return status.Error(codes.Code(f.Code), f.Message)
}

// streamSource restores transport errors the gateway encoded as error frames.
type streamSource struct {
	frames.Source
}

func (s streamSource) Recv(ctx context.Context) (wire.Frame, error) {
	f, err := s.Source.Recv(ctx)
	if err != nil {
		return nil, err
	}

	if ef, ok := f.(wire.ErrorFrame); ok {
		if rpcErr, isRPC := sqlerr.FromStreamCode(ef.Code, ef.Message); isRPC {
			return nil, rpcErr
		}
	}
	return f, nil
}

type bodyReader struct {
	resp   *fasthttp.Response
	body   io.Reader
	closed bool
}

func newBodyReader(resp *fasthttp.Response) *bodyReader {
	body := resp.BodyStream()
	if body == nil {
		body = bytes.NewReader(resp.Body())
	}
	return &bodyReader{resp: resp, body: body}
}

func (r *bodyReader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, frames.ErrClosed
	}
	return r.body.Read(p)
}

func (r *bodyReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	err := r.resp.CloseBodyStream()
	fasthttp.ReleaseResponse(r.resp)
	return errors.WrapFail(err, "close response body")
}
