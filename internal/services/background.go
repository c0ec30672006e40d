package services

import (
	"log"
	"sync"
)

// Background runs fire-and-forget work on goroutines that can still be
// awaited. The request path never blocks on it, but shutdown and tests can
// call Wait to know every task finished.
type Background struct {
	wg sync.WaitGroup
}

func NewBackground() *Background {
	return &Background{}
}

// Go schedules fn on its own goroutine. Panics are recovered and logged so a
// cleanup task cannot take the process down.
func (b *Background) Go(name string, fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("❌ background task %s panicked: %v", name, r)
			}
		}()
		fn()
	}()
}

// Wait blocks until every scheduled task has finished.
func (b *Background) Wait() {
	b.wg.Wait()
}
