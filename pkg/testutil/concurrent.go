package testutil

import (
	"errors"
	"sync"

	dErrors "solmeet/pkg/domain-errors"
	"solmeet/pkg/platform/sentinel"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
// Domain errors are tallied per code so race tests can assert, for example,
// "exactly one accept and N-1 already_claimed".
type ConcurrentResult struct {
	Successes int
	Errors    int
	Conflicts int
	NotFounds int
	ByCode    map[dErrors.Code]int
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int {
	return r.Successes + r.Errors + r.Conflicts + r.NotFounds
}

// Code returns how many operations failed with the given domain code.
func (r *ConcurrentResult) Code(code dErrors.Code) int {
	return r.ByCode[code]
}

// RunConcurrent executes fn in parallel goroutines released together from a
// shared start barrier, and classifies each outcome.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	successes, errs := RunConcurrentCollect(goroutines, fn)

	result := &ConcurrentResult{Successes: successes, ByCode: make(map[dErrors.Code]int)}
	for _, err := range errs {
		var domainErr *dErrors.Error
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			result.Conflicts++
		case errors.Is(err, sentinel.ErrNotFound):
			result.NotFounds++
		case errors.As(err, &domainErr):
			result.ByCode[domainErr.Code]++
			result.Errors++
		default:
			result.Errors++
		}
	}
	return result
}

// RunConcurrentCollect executes fn in parallel and collects all errors.
// Use this when you need to inspect individual error types beyond the standard categories.
func RunConcurrentCollect(goroutines int, fn func(idx int) error) (successes int, errs []error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	start := make(chan struct{})

	for i := range goroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			err := fn(idx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			successes++
		}(i)
	}

	close(start)
	wg.Wait()
	return successes, errs
}
