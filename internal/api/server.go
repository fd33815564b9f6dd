package api

import (
	"bufio"
	"context"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/frames"
	"github.com/nikmy/sqlrelay/pkg/logger"
	"github.com/nikmy/sqlrelay/pkg/sqlerr"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

func NewServer(cfg Config, log logger.Logger, backend Backend) Server {
	return newServer(cfg, log, backend)
}

func newServer(cfg Config, log logger.Logger, backend Backend) *server {
	serveLog := log.With("api_http_server")

	fiberCfg := fiber.Config{
		ReadTimeout:             cfg.HTTP.ReadTimeout,
		WriteTimeout:            cfg.HTTP.WriteTimeout,
		IdleTimeout:             cfg.HTTP.IdleTimeout,
		BodyLimit:               cfg.Limits.BodySize,
		Concurrency:             cfg.Limits.Connections,
		DisableStartupMessage:   true,
		EnableTrustedProxyCheck: true,
		ProxyHeader:             cfg.Proxy.Header,
		TrustedProxies:          cfg.Proxy.Trusted,
		RequestMethods:          []string{fiber.MethodGet, fiber.MethodPost},
	}

	fiberCfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
		serveLog.Warn(errors.WrapFail(err, "handle http request"))

		code := http.StatusInternalServerError
		if fe, ok := errors.AsType[*fiber.Error](err); ok {
			code = fe.Code
		}
		return c.Status(code).Send(nil)
	}

	s := &server{
		backend: backend,
		http:    fiber.New(fiberCfg),
		addr:    cfg.HTTP.Addr,
		log:     serveLog,
	}

	s.setupRoutes()

	return s
}

type server struct {
	backend Backend
	http    *fiber.App
	addr    string
	log     logger.Logger
}

func (s *server) Serve(ctx context.Context) error {
	errCh := make(chan error)
	go func() { errCh <- s.http.Listen(s.addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return errors.Error("serve context done")
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	var errs []error

	err := s.http.ShutdownWithContext(ctx)
	if err != nil {
		errs = append(errs, errors.WrapFail(err, "shutdown http server"))
	}

	err = s.backend.Close()
	if err != nil {
		errs = append(errs, errors.WrapFail(err, "close backend"))
	}

	return errors.Collapse(errs)
}

func (s *server) setupRoutes() {
	s.http.Get(wire.PathHealth, func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	s.http.Post(wire.PathBegin, unary(s, "begin", s.backend.Begin))
	s.http.Post(wire.PathQuery, s.handleQuery)
	s.http.Post(wire.PathExec, unary(s, "exec", s.backend.Exec))
	s.http.Post(wire.PathSavepoint, unary(s, "savepoint", s.backend.Savepoint))
	s.http.Post(wire.PathCommit, unary(s, "commit", s.backend.Commit))
	s.http.Post(wire.PathRollback, unary(s, "rollback", s.backend.Rollback))
}

func unary[Req, Resp any](s *server, op string, call func(context.Context, Req) (Resp, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req Req
		err := wire.Unmarshal(c.Body(), &req)
		if err != nil {
			s.log.Warn(errors.WrapFailf(err, "parse %s request", op))
			return s.sendError(c, status.Error(codes.InvalidArgument, "malformed bson document"))
		}

		resp, err := call(c.Context(), req)
		if err != nil {
			return s.sendError(c, err)
		}

		return s.send(c, http.StatusOK, resp)
	}
}

func (s *server) handleQuery(c *fiber.Ctx) error {
	var req wire.QueryRequest
	err := wire.Unmarshal(c.Body(), &req)
	if err != nil {
		s.log.Warn(errors.WrapFail(err, "parse query request"))
		return s.sendError(c, status.Error(codes.InvalidArgument, "malformed bson document"))
	}

	src, err := s.backend.Query(c.Context(), req)
	if err != nil {
		return s.sendError(c, err)
	}

	c.Set(fiber.HeaderContentType, wire.ContentType)
	c.Status(http.StatusOK)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		s.stream(w, src)
	})
	return nil
}

// stream writes frames until the source is exhausted. A transport failure
// after the response has started is sent as an error frame with a stream code.
func (s *server) stream(w *bufio.Writer, src frames.Source) {
	defer func() {
		err := src.Close()
		if err != nil {
			s.log.Warn(errors.WrapFail(err, "close frame source"))
		}
	}()

	ctx := context.Background()
	for {
		f, err := src.Recv(ctx)
		if err == io.EOF {
			return
		}
		if err != nil {
			f = wire.ErrorFrame{
				Message: status.Convert(err).Message(),
				Code:    sqlerr.StreamCode(err),
			}
		}

		werr := wire.WriteFrame(w, f)
		if werr == nil {
			werr = w.Flush()
		}
		if werr != nil {
			s.log.Warn(errors.WrapFail(werr, "stream frames"))
			return
		}

		if err != nil {
			return
		}
	}
}

func (s *server) send(c *fiber.Ctx, code int, msg any) error {
	data, err := wire.Marshal(msg)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, wire.ContentType)
	return c.Status(code).Send(data)
}

func (s *server) sendError(c *fiber.Ctx, err error) error {
	code, failure := toFailure(err)
	if code >= http.StatusInternalServerError {
		s.log.Warn(err)
	} else {
		s.log.Debug(err)
	}
	return s.send(c, code, failure)
}
