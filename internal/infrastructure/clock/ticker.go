// Package clock provides the schedulers that drive status polling.
package clock

import (
	"sync"
	"time"

	"github.com/doeshing/pdqa/internal/ports"
)

// TickerScheduler runs each registered task on its own goroutine backed by
// a time.Ticker. The task runs synchronously on that goroutine, so a slow
// task makes the ticker drop ticks instead of stacking calls.
type TickerScheduler struct{}

// NewTickerScheduler returns the production scheduler.
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

// Every implements ports.Scheduler. stop does not wait for a running task.
func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

var _ ports.Scheduler = TickerScheduler{}
