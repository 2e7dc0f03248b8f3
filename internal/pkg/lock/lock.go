// Package lock provides per-handle locking for in-process encounters.
package lock

import (
	"sync"
)

// entry is the mutex of one handle plus the number of callers holding or
// waiting for it. An entry is dropped once nobody references it.
type entry struct {
	mu   sync.Mutex
	refs int
	held bool
}

// HandleLock hands out one mutex per account handle. It only guards work
// inside this process; cross-process safety comes from the ledger store.
type HandleLock struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewHandleLock creates a new HandleLock instance.
func NewHandleLock() *HandleLock {
	return &HandleLock{entries: make(map[string]*entry)}
}

// ref returns the entry for handle, creating it, and counts the caller.
func (hl *HandleLock) ref(handle string) *entry {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	e, ok := hl.entries[handle]
	if !ok {
		e = &entry{}
		hl.entries[handle] = e
	}
	e.refs++
	return e
}

// unref must be called with hl.mu held.
func (hl *HandleLock) unref(handle string, e *entry) {
	e.refs--
	if e.refs == 0 {
		delete(hl.entries, handle)
	}
}

func (hl *HandleLock) markHeld(e *entry) {
	hl.mu.Lock()
	e.held = true
	hl.mu.Unlock()
}

// Unlock releases the lock for handle. Unlocking a handle that is not
// locked is a no-op.
func (hl *HandleLock) Unlock(handle string) {
	hl.mu.Lock()
	e, ok := hl.entries[handle]
	if !ok || !e.held {
		hl.mu.Unlock()
		return
	}
	e.held = false
	hl.unref(handle, e)
	hl.mu.Unlock()
	e.mu.Unlock()
}

// TryLock attempts to acquire the lock without blocking.
func (hl *HandleLock) TryLock(handle string) bool {
	e := hl.ref(handle)
	if e.mu.TryLock() {
		hl.markHeld(e)
		return true
	}
	hl.mu.Lock()
	hl.unref(handle, e)
	hl.mu.Unlock()
	return false
}

// TryWithLock executes fn while holding the lock for handle, or returns
// ErrBusy at once if another caller holds it.
func (hl *HandleLock) TryWithLock(handle string, fn func() error) error {
	if !hl.TryLock(handle) {
		return ErrBusy
	}
	defer hl.Unlock(handle)
	return fn()
}
