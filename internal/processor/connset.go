package processor

import "sync"

// ConnectionSet is the set of currently-connected device IDs. Backed by
// sync.Map per spec.md §5's "concurrent hash set with lock-free reads" —
// reads (Contains, Snapshot) never block a concurrent Add/Remove.
type ConnectionSet struct {
	m sync.Map
}

func NewConnectionSet() *ConnectionSet {
	return &ConnectionSet{}
}

func (c *ConnectionSet) Add(deviceID string) {
	c.m.Store(deviceID, struct{}{})
}

func (c *ConnectionSet) Remove(deviceID string) {
	c.m.Delete(deviceID)
}

func (c *ConnectionSet) Contains(deviceID string) bool {
	_, ok := c.m.Load(deviceID)
	return ok
}

// Len walks the set; intended for metrics/diagnostics, not a hot path.
func (c *ConnectionSet) Len() int {
	n := 0
	c.m.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// Snapshot returns every currently-connected device ID.
func (c *ConnectionSet) Snapshot() []string {
	var out []string
	c.m.Range(func(key, _ interface{}) bool {
		out = append(out, key.(string))
		return true
	})
	return out
}
