package txn

import (
	"github.com/nikmy/sqlrelay/pkg/results"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

type State int

const (
	Unstarted State = iota
	Active
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Active:
		return "active"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

func (s State) Finalized() bool {
	return s == Committed || s == RolledBack
}

// ExecResult is the outcome of a statement run through Exec.
// RowsAffected and LastInsertID are *big.Int or int64, as the codec policy says.
type ExecResult struct {
	RowsAffected any
	LastInsertID any
	Stats        *wire.Stats
}

func (r ExecResult) RowsAffectedInt64() (int64, error) {
	return results.AsInt64(r.RowsAffected)
}

func (r ExecResult) LastInsertIDInt64() (int64, error) {
	return results.AsInt64(r.LastInsertID)
}

type SavepointResult struct {
	Success bool
	Name    string
	Action  wire.SavepointAction
}
