// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netrange

import (
	"context"
	"sync"
)

// Worker computes a Plan on a background goroutine and caches the result
// for the lifetime of the process, keeping the exclusion arithmetic off
// the connection-accepting path.
type Worker struct {
	once   sync.Once
	plan   Plan
	err    error
	result chan struct{}
}

// NewWorker starts computing Compute(trustedSources, trustedSubnets) on a
// background goroutine immediately. The result is available via Wait.
func NewWorker(trustedSources, trustedSubnets []string) *Worker {
	w := &Worker{result: make(chan struct{})}
	go func() {
		w.plan, w.err = Compute(trustedSources, trustedSubnets)
		close(w.result)
	}()
	return w
}

// Wait blocks until the computation completes or ctx is done, whichever
// comes first.
func (w *Worker) Wait(ctx context.Context) (Plan, error) {
	select {
	case <-w.result:
		return w.plan, w.err
	case <-ctx.Done():
		return Plan{}, ctx.Err()
	}
}
