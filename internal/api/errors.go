package api

import (
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/sqlerr"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

var httpStatuses = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.NotFound:           http.StatusNotFound,
	codes.Aborted:            http.StatusConflict,
	codes.FailedPrecondition: http.StatusPreconditionFailed,
	codes.DeadlineExceeded:   http.StatusGatewayTimeout,
	codes.Unavailable:        http.StatusServiceUnavailable,
	codes.Canceled:           http.StatusRequestTimeout,
}

type grpcStatus interface {
	error
	GRPCStatus() *status.Status
}

// toFailure maps a backend error to the response status and body.
func toFailure(err error) (int, wire.Failure) {
	if sqlErr, ok := errors.AsType[*sqlerr.SQLExecutionError](err); ok {
		return http.StatusUnprocessableEntity, wire.Failure{
			Code:    uint32(codes.Unknown),
			Message: sqlErr.Message,
			SQL:     sqlErr.SQL,
			SQLCode: sqlErr.Code,
		}
	}

	st := status.Convert(err)
	if se, ok := errors.AsType[grpcStatus](err); ok {
		st = se.GRPCStatus()
	}

	httpStatus, ok := httpStatuses[st.Code()]
	if !ok {
		httpStatus = http.StatusInternalServerError
	}

	return httpStatus, wire.Failure{
		Code:    uint32(st.Code()),
		Message: st.Message(),
	}
}
