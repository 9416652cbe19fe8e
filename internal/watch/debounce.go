package watch

import (
	"sync"
	"time"
)

// pathLocker provides per-path mutual exclusion.
type pathLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	sync.Mutex
	users int
}

func newPathLocker() *pathLocker {
	return &pathLocker{locks: make(map[string]*lockEntry)}
}

func (pl *pathLocker) Lock(path string) {
	pl.mu.Lock()
	l, ok := pl.locks[path]
	if !ok {
		l = &lockEntry{}
		pl.locks[path] = l
	}
	l.users++
	pl.mu.Unlock()
	l.Lock()
}

func (pl *pathLocker) Unlock(path string) {
	pl.mu.Lock()
	l, ok := pl.locks[path]
	if !ok {
		pl.mu.Unlock()
		return
	}
	l.users--
	if l.users == 0 {
		delete(pl.locks, path)
	}
	pl.mu.Unlock()
	l.Unlock()
}

// debouncer coalesces rapid event bursts into a single callback per file.
type debouncer struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	delay   time.Duration
	onFire  func(path string)
	stopped bool
}

func newDebouncer(delay time.Duration, onFire func(path string)) *debouncer {
	return &debouncer{
		timers: make(map[string]*time.Timer),
		delay:  delay,
		onFire: onFire,
	}
}

func (d *debouncer) trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t, ok := d.timers[path]; ok {
		t.Reset(d.delay)
		return
	}
	// onFire runs under the lock so nothing fires once stop returns; it
	// must not block
	d.timers[path] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.timers, path)
		if !d.stopped {
			d.onFire(path)
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for path, t := range d.timers {
		t.Stop()
		delete(d.timers, path)
	}
}
