package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func startLoop(t *testing.T, size int) (*Loop, context.CancelFunc, <-chan error) {
	t.Helper()
	l := New(size, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	return l, cancel, errc
}

func TestLoop_PreservesOrder(t *testing.T) {
	l, cancel, errc := startLoop(t, 4)
	defer cancel()

	var (
		mu  sync.Mutex
		got []int
		wg  sync.WaitGroup
	)
	const n = 200
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		err := l.Submit(context.Background(), Job{Name: "append", Run: func(context.Context) {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			wg.Done()
		}})
		require.NoError(t, err)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.Equal(t, i, got[i])
	}

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestLoop_JobsDoNotOverlap(t *testing.T) {
	l, cancel, _ := startLoop(t, 16)
	defer cancel()

	var (
		active  int
		maxSeen int
		mu      sync.Mutex
		wg      sync.WaitGroup
	)
	wg.Add(10)
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Submit(context.Background(), Job{Name: "slow", Run: func(context.Context) {
			defer wg.Done()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}}))
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestLoop_SurvivesPanic(t *testing.T) {
	l, cancel, _ := startLoop(t, 2)
	defer cancel()

	require.NoError(t, l.Submit(context.Background(), Job{Name: "panic", Run: func(context.Context) {
		panic("boom")
	}}))

	done := make(chan struct{})
	require.NoError(t, l.Submit(context.Background(), Job{Name: "after", Run: func(context.Context) {
		close(done)
	}}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not run the job after a panic")
	}
}

func TestLoop_SubmitAfterStop(t *testing.T) {
	l, cancel, errc := startLoop(t, 1)
	cancel()
	<-errc

	err := l.Submit(context.Background(), Job{Name: "late", Run: func(context.Context) {}})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestLoop_SubmitBlocksWhenFull(t *testing.T) {
	l := New(1, zaptest.NewLogger(t))

	require.NoError(t, l.Submit(context.Background(), Job{Name: "fill", Run: func(context.Context) {}}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Submit(ctx, Job{Name: "blocked", Run: func(context.Context) {}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
