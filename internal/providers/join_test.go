package providers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/lade/pkg/provider"
)

func TestFanOutMergesResults(t *testing.T) {
	t.Parallel()

	tasks := []task{
		func(context.Context) (provider.Hydration, error) { return provider.Hydration{"a": "1"}, nil },
		func(context.Context) (provider.Hydration, error) { return provider.Hydration{"b": "2"}, nil },
		func(context.Context) (provider.Hydration, error) { return provider.Hydration{}, nil },
	}

	merged, err := fanOut(context.Background(), tasks)
	require.NoError(t, err)
	assert.Equal(t, provider.Hydration{"a": "1", "b": "2"}, merged)
}

func TestFanOutNoTasks(t *testing.T) {
	t.Parallel()

	merged, err := fanOut(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, merged)
}

func TestFanOutFailsFastWithoutCancellingSiblings(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	release := make(chan struct{})
	finished := make(chan struct{})
	var siblingCtxErr atomic.Value

	tasks := []task{
		func(context.Context) (provider.Hydration, error) { return nil, boom },
		func(ctx context.Context) (provider.Hydration, error) {
			defer close(finished)
			<-release
			if err := ctx.Err(); err != nil {
				siblingCtxErr.Store(err)
			}
			return provider.Hydration{"slow": "v"}, nil
		},
	}

	start := time.Now()
	_, err := fanOut(context.Background(), tasks)
	require.ErrorIs(t, err, boom)
	assert.Less(t, time.Since(start), 5*time.Second, "error must not wait for the slow sibling")

	// The sibling keeps running after fanOut returned and sees a live context.
	close(release)
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("sibling task never finished")
	}
	assert.Nil(t, siblingCtxErr.Load())
}

func TestFanOutFirstErrorWins(t *testing.T) {
	t.Parallel()

	first := errors.New("first")
	started := make(chan struct{})

	tasks := []task{
		func(context.Context) (provider.Hydration, error) {
			close(started)
			return nil, first
		},
		func(context.Context) (provider.Hydration, error) {
			<-started
			time.Sleep(10 * time.Millisecond)
			return nil, errors.New("second")
		},
	}

	_, err := fanOut(context.Background(), tasks)
	assert.ErrorIs(t, err, first)
}
