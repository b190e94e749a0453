package clock

import (
	"slices"
	"sync"
	"time"

	"github.com/doeshing/pdqa/internal/ports"
)

// ManualScheduler fires ticks on demand. Tests use it to step the polling
// loop deterministically and to count armed timers.
type ManualScheduler struct {
	mu     sync.Mutex
	nextID int
	tasks  map[int]manualTask
	armed  int
}

type manualTask struct {
	interval time.Duration
	fn       func()
}

// NewManualScheduler returns an empty scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[int]manualTask)}
}

// Every implements ports.Scheduler.
func (m *ManualScheduler) Every(interval time.Duration, fn func()) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.tasks[id] = manualTask{interval: interval, fn: fn}
	m.armed++
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.tasks, id)
			m.mu.Unlock()
		})
	}
}

// Tick runs every active task once, in registration order, and returns how
// many ran. Tasks are invoked without holding the scheduler lock, so they
// may stop themselves or arm new timers.
func (m *ManualScheduler) Tick() int {
	m.mu.Lock()
	ids := make([]int, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	slices.Sort(ids)

	ran := 0
	for _, id := range ids {
		m.mu.Lock()
		task, ok := m.tasks[id]
		m.mu.Unlock()
		if !ok {
			continue
		}
		task.fn()
		ran++
	}
	return ran
}

// Active returns the number of timers currently armed.
func (m *ManualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Armed returns how many timers were ever created.
func (m *ManualScheduler) Armed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// Intervals lists the intervals of the active timers.
func (m *ManualScheduler) Intervals() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t.interval)
	}
	return out
}

var _ ports.Scheduler = (*ManualScheduler)(nil)
