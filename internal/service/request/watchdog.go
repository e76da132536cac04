package request

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// watchdog keeps one cancellable timer per pending request. Stopping a timer is
// best effort; the PENDING guard in the repository is what prevents double finalization.
type watchdog struct {
	mu     sync.Mutex
	timers map[uuid.UUID]Timer
	clock  Clock
}

func newWatchdog(clock Clock) *watchdog {
	return &watchdog{timers: make(map[uuid.UUID]Timer), clock: clock}
}

func (w *watchdog) schedule(id uuid.UUID, d time.Duration, fire func(id uuid.UUID)) {
	if d < 0 {
		d = 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if old, ok := w.timers[id]; ok {
		old.Stop()
	}
	w.timers[id] = w.clock.AfterFunc(d, func() {
		w.forget(id)
		fire(id)
	})
}

func (w *watchdog) cancel(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[id]; ok {
		t.Stop()
		delete(w.timers, id)
	}
}

func (w *watchdog) forget(id uuid.UUID) {
	w.mu.Lock()
	delete(w.timers, id)
	w.mu.Unlock()
}

func (w *watchdog) pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers)
}

func (w *watchdog) stopAll() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, t := range w.timers {
		t.Stop()
		delete(w.timers, id)
	}
}
