package export

import "sync"

// Busy tracks which users have an export in flight.
type Busy struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewBusy() *Busy {
	return &Busy{active: make(map[string]struct{})}
}

// Acquire marks key busy. It returns false when key already is.
func (b *Busy) Acquire(key string) (release func(), ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.active[key]; taken {
		return nil, false
	}
	b.active[key] = struct{}{}
	return func() {
		b.mu.Lock()
		delete(b.active, key)
		b.mu.Unlock()
	}, true
}
