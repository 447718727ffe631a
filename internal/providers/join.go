package providers

import (
	"context"
	"sync"

	"github.com/systmms/lade/pkg/provider"
	"golang.org/x/sync/errgroup"
)

type task func(ctx context.Context) (provider.Hydration, error)

// fanOut runs every task concurrently and returns the union of their
// hydrations.
//
// It returns as soon as the first task fails. Tasks still in flight are not
// cancelled: they run to completion, release their own resources (temporary
// workspaces, file handles) and their results are dropped. The group has no
// derived context for that reason.
func fanOut(ctx context.Context, tasks []task) (provider.Hydration, error) {
	merged := provider.Hydration{}
	if len(tasks) == 0 {
		return merged, nil
	}

	var (
		g        errgroup.Group
		once     sync.Once
		firstErr error
		failed   = make(chan struct{})
		results  = make(chan provider.Hydration, len(tasks))
	)

	for _, t := range tasks {
		g.Go(func() error {
			h, err := t(ctx)
			if err != nil {
				once.Do(func() {
					firstErr = err
					close(failed)
				})
				return err
			}
			results <- h
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-failed:
		return nil, firstErr
	case <-done:
	}

	// Both channels may be ready at once; a failure always wins.
	select {
	case <-failed:
		return nil, firstErr
	default:
	}

	close(results)
	for h := range results {
		merged.Merge(h)
	}
	return merged, nil
}
