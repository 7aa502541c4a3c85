package usecase

import (
	"fmt"
	"sync"
)

// runBounded calls task(i) for i in [0, n) with at most limit calls in flight
// and returns once all of them have finished.
func runBounded(limit, n int, task func(i int)) {
	if limit <= 0 || limit > n {
		limit = n
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			task(i)
		}(i)
	}
	wg.Wait()
}

// safeCall turns a panic inside fn into an error so one pair cannot take
// down the cycle.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
