// Package sqlerr holds the error types a transaction session can surface.
//
// Transport failures are not wrapped into these types: they keep their
// grpc status so callers can inspect codes directly. IsGone and IsExpired
// classify them for the rollback path.
package sqlerr

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nikmy/sqlrelay/pkg/errors"
)

// ProtocolViolationError reports frames observed out of the legal order
// Header? Batch* (Complete|Error).
type ProtocolViolationError struct {
	Reason string
}

func (e *ProtocolViolationError) Error() string {
	return "protocol violation: " + e.Reason
}

func ProtocolViolation(format string, args ...any) error {
	return &ProtocolViolationError{Reason: fmt.Sprintf(format, args...)}
}

// SQLExecutionError is a failure reported by the server for a statement.
type SQLExecutionError struct {
	Message string
	SQL     string
	Code    string
}

func (e *SQLExecutionError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.SQL != "" {
		msg += " (in " + quoteSQL(e.SQL) + ")"
	}
	return msg
}

func quoteSQL(sql string) string {
	const maxLen = 120
	if len(sql) > maxLen {
		sql = sql[:maxLen] + "..."
	}
	return fmt.Sprintf("%q", sql)
}

// TransactionStateError is returned when an operation is invalid for the
// current state of a session.
type TransactionStateError struct {
	Op    string
	State string
}

func (e *TransactionStateError) Error() string {
	return fmt.Sprintf("transaction state: %s is not allowed in state %s", e.Op, e.State)
}

// TransactionExpiredError is returned when the server has invalidated the
// transaction because its timeout elapsed.
type TransactionExpiredError struct {
	TransactionID string
	ExpiredAt     time.Time
}

func (e *TransactionExpiredError) Error() string {
	if e.ExpiredAt.IsZero() {
		return fmt.Sprintf("transaction %s expired", e.TransactionID)
	}
	return fmt.Sprintf("transaction %s expired at %s", e.TransactionID, e.ExpiredAt.Format(time.RFC3339))
}

// IsGone reports whether err is the transport's "not found" answer,
// meaning the server no longer knows the transaction.
func IsGone(err error) bool {
	return code(err) == codes.NotFound
}

// IsExpired reports whether err says the transaction timed out on the server.
func IsExpired(err error) bool {
	if _, ok := errors.AsType[*TransactionExpiredError](err); ok {
		return true
	}
	return code(err) == codes.Aborted
}

func code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}

	var se interface{ GRPCStatus() *status.Status }
	if errors.As(err, &se) {
		return se.GRPCStatus().Code()
	}
	return codes.Unknown
}

func Gone(txID string) error {
	return status.Errorf(codes.NotFound, "transaction %s not found", txID)
}

func Expired(txID string) error {
	return status.Errorf(codes.Aborted, "transaction %s expired", txID)
}

const streamCodePrefix = "RPC_"

// StreamCode encodes a transport failure that happened mid-stream as an
// error frame code.
func StreamCode(err error) string {
	return streamCodePrefix + strings.ToUpper(code(err).String())
}

// FromStreamCode restores the transport error encoded by StreamCode.
func FromStreamCode(frameCode, message string) (error, bool) {
	name, ok := strings.CutPrefix(frameCode, streamCodePrefix)
	if !ok {
		return nil, false
	}

	for c := codes.OK; c <= codes.Unauthenticated; c++ {
		if strings.ToUpper(c.String()) == name {
			return status.Error(c, message), true
		}
	}
	return status.Error(codes.Unknown, message), true
}
