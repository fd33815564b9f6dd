package pubsub

import "context"

// Publisher delivers transaction lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// Nop returns a Publisher that drops every event.
func Nop() Publisher {
	return nop{}
}

type nop struct{}

func (nop) Publish(context.Context, ...Event) error { return nil }
func (nop) Close() error                            { return nil }
