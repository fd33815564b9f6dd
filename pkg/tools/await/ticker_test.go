package await

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTicker_Await(t *testing.T) {
	tick := Tick(time.Millisecond)
	defer tick.Stop()

	var a Awaiter = tick
	require.True(t, a.Await(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slow := Tick(time.Hour)
	defer slow.Stop()
	require.False(t, slow.Await(ctx))
}
