package watch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerGroup_WaitsForWorkers(t *testing.T) {
	var g workerGroup
	var done atomic.Int32
	for range 3 {
		require.True(t, g.Go(func() {
			time.Sleep(10 * time.Millisecond)
			done.Add(1)
		}))
	}
	require.NoError(t, g.StopAndWait(context.Background()))
	assert.Equal(t, int32(3), done.Load())
	assert.False(t, g.Go(func() {}), "no new workers after stop")
	assert.False(t, (&workerGroup{}).Go(nil))
}

func TestWorkerGroup_StopBoundedByContext(t *testing.T) {
	var g workerGroup
	release := make(chan struct{})
	g.Go(func() { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, g.StopAndWait(ctx), context.DeadlineExceeded)
}
