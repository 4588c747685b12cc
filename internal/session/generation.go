// Package session tracks which asynchronous load is allowed to land.
//
// Every attach, restore or detach advances a Generation. A load captures the
// value when it starts and applies its result only if the value is still
// current when it finishes; anything else is a superseded load and is dropped.
package session

import "sync/atomic"

// Generation is a monotonic counter. The zero value is ready to use.
type Generation struct {
	n atomic.Uint64
}

// Advance starts a new generation and returns it.
func (g *Generation) Advance() uint64 {
	return g.n.Add(1)
}

// Current returns the latest generation.
func (g *Generation) Current() uint64 {
	return g.n.Load()
}

// IsCurrent reports whether gen is still the latest generation.
func (g *Generation) IsCurrent(gen uint64) bool {
	return g.n.Load() == gen
}
