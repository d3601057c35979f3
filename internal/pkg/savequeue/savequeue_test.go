package savequeue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedQueue(t *testing.T, buffer int) *Queue {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	q := New(buffer, zerolog.Nop())
	q.Start(ctx)
	return q
}

func TestSaveRunsWrite(t *testing.T) {
	q := startedQueue(t, 4)

	ran := false
	err := q.Save(context.Background(), func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	// The pending count drops after the caller is released.
	assert.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSavePropagatesWriteError(t *testing.T) {
	q := startedQueue(t, 4)

	boom := errors.New("commit failed")
	err := q.Save(context.Background(), func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestConcurrentSavesAreSerialized(t *testing.T) {
	q := startedQueue(t, 8)

	// A plain int mutated by every writer; the race detector flags this
	// immediately if two writes ever overlap.
	counter := 0
	const writers = 32
	const writesEach = 25

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < writesEach; j++ {
				err := q.Save(context.Background(), func(context.Context) error {
					counter++
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, writers*writesEach, counter)
	assert.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSaveRecoversFromPanic(t *testing.T) {
	q := startedQueue(t, 4)

	err := q.Save(context.Background(), func(context.Context) error {
		panic("write exploded")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write exploded")

	// The gate is released; the next write goes through.
	err = q.Save(context.Background(), func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestSaveAfterShutdownIsRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := New(4, zerolog.Nop())
	q.Start(ctx)

	require.NoError(t, q.Save(context.Background(), func(context.Context) error { return nil }))

	cancel()
	<-q.stopped

	err := q.Save(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveHonorsCallerContext(t *testing.T) {
	q := startedQueue(t, 4)

	callerCtx, cancel := context.WithCancel(context.Background())
	cancel()

	err := q.Save(callerCtx, func(context.Context) error {
		t.Fatal("write must not run with a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
