// Package shared holds the pieces every media server adapter uses the same way:
// the ready/uninitialized state, per-user batching, hierarchy expansion for
// context actions, the library id heuristic and the HTTP transport.
package shared

import "sync"

// State is the adapter lifecycle
type State int

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "uninitialized"
}

// Connection holds the live client of an adapter. The zero value is uninitialized.
type Connection[C any] struct {
	mu     sync.RWMutex
	state  State
	client C
}

// Client returns the live client and true when ready
func (c *Connection[C]) Client() (C, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client, c.state == StateReady
}

// Open stores client and moves to ready
func (c *Connection[C]) Open(client C) {
	c.mu.Lock()
	c.client = client
	c.state = StateReady
	c.mu.Unlock()
}

// Close drops the client and moves to uninitialized
func (c *Connection[C]) Close() {
	var zero C
	c.mu.Lock()
	c.client = zero
	c.state = StateUninitialized
	c.mu.Unlock()
}

// State returns the current lifecycle state
func (c *Connection[C]) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}
