package pubsub

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/nikmy/sqlrelay/pkg/errors"
)

type EventKind string

const (
	EventBegin    EventKind = "begin"
	EventCommit   EventKind = "commit"
	EventRollback EventKind = "rollback"
	// EventExpire is sent when a transaction is rolled back past its deadline.
	EventExpire EventKind = "expire"
)

type Event struct {
	Kind          EventKind `bson:"kind"`
	TransactionID string    `bson:"transaction_id"`
	Database      string    `bson:"database"`
	At            time.Time `bson:"at"`
	ExpiresAt     time.Time `bson:"expires_at,omitempty"`

	// Error is set when the engine could not end the transaction cleanly.
	Error string `bson:"error,omitempty"`
}

// Encode renders the event as relaxed extended JSON.
func (e Event) Encode() ([]byte, error) {
	data, err := bson.MarshalExtJSON(e, false, false)
	return data, errors.WrapFailf(err, "encode %s event", e.Kind)
}
