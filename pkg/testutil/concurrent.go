// Package testutil holds helpers shared by package tests.
package testutil

import (
	"sync"
	"sync/atomic"

	dErrors "unearthify/pkg/domain-errors"
)

// ConcurrentResult counts outcomes of calls made in parallel.
type ConcurrentResult struct {
	Successes int32
	// Rejected counts conflicts and invalid state transitions.
	Rejected  int32
	NotFounds int32
	Errors    int32
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Rejected + r.NotFounds + r.Errors
}

// RunConcurrent calls fn from n goroutines at once and sorts the returned
// errors by domain code.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg                                  sync.WaitGroup
		start                               = make(chan struct{})
		successes, rejected, notFound, errs atomic.Int32
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := fn(i)
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeConflict),
				dErrors.HasCode(err, dErrors.CodeInvariantViolation):
				rejected.Add(1)
			case dErrors.HasCode(err, dErrors.CodeNotFound):
				notFound.Add(1)
			default:
				errs.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Rejected:  rejected.Load(),
		NotFounds: notFound.Load(),
		Errors:    errs.Load(),
	}
}
