// Package utils contains small helpers shared by the motion components.
package utils

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// SimpleFunc is one unit of work for RunInParallel.
type SimpleFunc func(ctx context.Context) error

// RunInParallel runs all functions concurrently and waits for every one of
// them. The first failure cancels the context handed to the others; their
// resulting context.Canceled errors are not folded into the combined error, so
// the caller sees only the originating failures.
func RunInParallel(ctx context.Context, fs []SimpleFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	var combined error
	storeErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if combined == nil || !errors.Is(err, context.Canceled) {
			combined = multierr.Combine(combined, err)
		}
	}

	var wg sync.WaitGroup
	for _, f := range fs {
		f := f
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					storeErr(errors.Errorf("panic running parallel work: %v", r))
					cancel()
				}
				wg.Done()
			}()
			if err := f(ctx); err != nil {
				storeErr(err)
				cancel()
			}
		}()
	}
	wg.Wait()
	return combined
}
