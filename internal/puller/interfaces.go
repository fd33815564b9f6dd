package puller

import (
	"context"
)

// Worker does one round of periodic work.
type Worker interface {
	DoWork(ctx context.Context) error
}

type Puller interface {
	Run(ctx context.Context)
}
