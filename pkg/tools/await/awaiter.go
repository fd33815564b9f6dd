package await

import "context"

type Awaiter interface {
	// Await blocks until the awaited event or until ctx is done,
	// and reports whether the event happened.
	Await(ctx context.Context) (waited bool)
}
