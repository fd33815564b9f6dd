package wire

import (
	"strings"
	"time"
)

type LockMode string

const (
	LockDeferred  LockMode = "deferred"
	LockImmediate LockMode = "immediate"
	LockExclusive LockMode = "exclusive"
)

// ParseLockMode accepts the lock mode names case-insensitively; empty means deferred.
func ParseLockMode(s string) (LockMode, bool) {
	switch m := LockMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return LockDeferred, true
	case LockDeferred, LockImmediate, LockExclusive:
		return m, true
	default:
		return "", false
	}
}

func (m LockMode) Valid() bool {
	_, ok := ParseLockMode(string(m))
	return ok
}

func (m *LockMode) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}

	parsed, ok := ParseLockMode(raw)
	if !ok {
		return &UnknownValueError{Kind: "lock mode", Value: raw}
	}
	*m = parsed
	return nil
}

type SavepointAction string

const (
	SavepointCreate   SavepointAction = "create"
	SavepointRelease  SavepointAction = "release"
	SavepointRollback SavepointAction = "rollback"
)

func (a SavepointAction) Valid() bool {
	switch a {
	case SavepointCreate, SavepointRelease, SavepointRollback:
		return true
	default:
		return false
	}
}

type UnknownValueError struct {
	Kind  string
	Value string
}

func (e *UnknownValueError) Error() string {
	return "unknown " + e.Kind + " \"" + e.Value + "\""
}

type BeginRequest struct {
	Database string        `bson:"database"`
	LockMode LockMode      `bson:"lock_mode"`
	Timeout  time.Duration `bson:"timeout,omitempty"`
}

type BeginResponse struct {
	TransactionID string    `bson:"transaction_id"`
	ExpiresAt     time.Time `bson:"expires_at,omitempty"`
}

type Parameters struct {
	Positional []Cell          `bson:"positional,omitempty"`
	Named      map[string]Cell `bson:"named,omitempty"`
}

func (p Parameters) Len() int {
	return len(p.Positional) + len(p.Named)
}

// Hints are forwarded to the server as is.
type Hints struct {
	// Timeout bounds the execution of a single statement on the server.
	Timeout time.Duration `bson:"timeout,omitempty"`

	// BatchRows asks the server to put at most that many rows in one batch frame.
	BatchRows int32 `bson:"batch_rows,omitempty"`

	Label string `bson:"label,omitempty"`
}

type QueryRequest struct {
	TransactionID string     `bson:"transaction_id"`
	SQL           string     `bson:"sql"`
	Parameters    Parameters `bson:"parameters"`
	Hints         Hints      `bson:"hints"`
}

type ExecResponse struct {
	RowsAffected int64  `bson:"rows_affected"`
	LastInsertID int64  `bson:"last_insert_id"`
	Stats        *Stats `bson:"stats,omitempty"`
}

type SavepointRequest struct {
	TransactionID string          `bson:"transaction_id"`
	Name          string          `bson:"name"`
	Action        SavepointAction `bson:"action"`
}

type SavepointResponse struct {
	Success bool            `bson:"success"`
	Name    string          `bson:"name"`
	Action  SavepointAction `bson:"action"`
}

// ControlRequest is used by both commit and rollback.
type ControlRequest struct {
	TransactionID string `bson:"transaction_id"`
}

type ControlResponse struct {
	Success bool `bson:"success"`
}

// Failure is the body of an unsuccessful unary response. Code holds a
// google.golang.org/grpc/codes value; SQLCode is set for statement failures.
type Failure struct {
	Code    uint32 `bson:"code"`
	Message string `bson:"message"`
	SQL     string `bson:"sql,omitempty"`
	SQLCode string `bson:"sql_code,omitempty"`
}

// HTTP routes of the relay gateway. Requests and unary responses are single
// BSON documents; the query route answers with a frame stream.
const (
	PathBegin     = "/v1/tx/begin"
	PathQuery     = "/v1/tx/query"
	PathExec      = "/v1/tx/exec"
	PathSavepoint = "/v1/tx/savepoint"
	PathCommit    = "/v1/tx/commit"
	PathRollback  = "/v1/tx/rollback"
	PathHealth    = "/healthz"
)
