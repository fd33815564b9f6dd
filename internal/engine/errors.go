package engine

import (
	"context"

	"github.com/mattn/go-sqlite3"

	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/sqlerr"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

var sqliteCodes = map[sqlite3.ErrNo]string{
	sqlite3.ErrError:      "SQLITE_ERROR",
	sqlite3.ErrInternal:   "SQLITE_INTERNAL",
	sqlite3.ErrPerm:       "SQLITE_PERM",
	sqlite3.ErrAbort:      "SQLITE_ABORT",
	sqlite3.ErrBusy:       "SQLITE_BUSY",
	sqlite3.ErrLocked:     "SQLITE_LOCKED",
	sqlite3.ErrNomem:      "SQLITE_NOMEM",
	sqlite3.ErrReadonly:   "SQLITE_READONLY",
	sqlite3.ErrInterrupt:  "SQLITE_INTERRUPT",
	sqlite3.ErrIoErr:      "SQLITE_IOERR",
	sqlite3.ErrCorrupt:    "SQLITE_CORRUPT",
	sqlite3.ErrNotFound:   "SQLITE_NOTFOUND",
	sqlite3.ErrFull:       "SQLITE_FULL",
	sqlite3.ErrCantOpen:   "SQLITE_CANTOPEN",
	sqlite3.ErrProtocol:   "SQLITE_PROTOCOL",
	sqlite3.ErrEmpty:      "SQLITE_EMPTY",
	sqlite3.ErrSchema:     "SQLITE_SCHEMA",
	sqlite3.ErrTooBig:     "SQLITE_TOOBIG",
	sqlite3.ErrConstraint: "SQLITE_CONSTRAINT",
	sqlite3.ErrMismatch:   "SQLITE_MISMATCH",
	sqlite3.ErrMisuse:     "SQLITE_MISUSE",
	sqlite3.ErrNoLFS:      "SQLITE_NOLFS",
	sqlite3.ErrAuth:       "SQLITE_AUTH",
	sqlite3.ErrFormat:     "SQLITE_FORMAT",
	sqlite3.ErrRange:      "SQLITE_RANGE",
	sqlite3.ErrNotADB:     "SQLITE_NOTADB",
	sqlite3.ErrNotice:     "SQLITE_NOTICE",
	sqlite3.ErrWarning:    "SQLITE_WARNING",
}

// Code names the sqlite result code of err, or returns "" for non-sqlite errors.
func Code(err error) string {
	if se, ok := errors.AsType[sqlite3.Error](err); ok {
		if name, known := sqliteCodes[se.Code]; known {
			return name
		}
		return "SQLITE_ERROR"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "SQLITE_INTERRUPT"
	}
	return ""
}

func sqlError(err error, query string) *sqlerr.SQLExecutionError {
	return &sqlerr.SQLExecutionError{
		Message: err.Error(),
		SQL:     query,
		Code:    Code(err),
	}
}

func errorFrame(err error, query string) wire.ErrorFrame {
	return wire.ErrorFrame{
		Message: err.Error(),
		SQL:     query,
		Code:    Code(err),
	}
}
