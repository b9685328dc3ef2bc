// Package metrics maintains a fixed set of signed 32-bit counters
// keyed by name, cheap enough to bump from any component. The key set
// is fixed at construction so counter storage never reallocates.
package metrics

import "sync/atomic"

// Key identifies one counter.
type Key string

// Collector tracks the registered counters.
type Collector struct {
	keys   []Key
	index  map[Key]int
	values []atomic.Int32
}

// New creates a collector for the given keys. Duplicate keys collapse
// into one counter.
func New(keys ...Key) *Collector {
	c := &Collector{index: make(map[Key]int, len(keys))}
	for _, k := range keys {
		if _, ok := c.index[k]; ok {
			continue
		}
		c.index[k] = len(c.keys)
		c.keys = append(c.keys, k)
	}
	c.values = make([]atomic.Int32, len(c.keys))
	return c
}

// Set stores val for key. Unknown keys are ignored.
func (c *Collector) Set(key Key, val int32) {
	if i, ok := c.index[key]; ok {
		c.values[i].Store(val)
	}
}

// Add adds n to key's counter. Unknown keys are ignored.
func (c *Collector) Add(key Key, n int32) {
	if i, ok := c.index[key]; ok {
		c.values[i].Add(n)
	}
}

// Increase adds one to key's counter. Unknown keys are ignored.
func (c *Collector) Increase(key Key) {
	c.Add(key, 1)
}

// Get returns key's counter value and whether the key is registered.
func (c *Collector) Get(key Key) (int32, bool) {
	i, ok := c.index[key]
	if !ok {
		return 0, false
	}
	return c.values[i].Load(), true
}

// Reset zeroes every counter.
func (c *Collector) Reset() {
	for i := range c.values {
		c.values[i].Store(0)
	}
}

// Iterate calls fn for every counter in registration order.
func (c *Collector) Iterate(fn func(key Key, value int32)) {
	for i, k := range c.keys {
		fn(k, c.values[i].Load())
	}
}

// Snapshot returns a point-in-time copy of every counter.
func (c *Collector) Snapshot() map[Key]int32 {
	snap := make(map[Key]int32, len(c.keys))
	for i, k := range c.keys {
		snap[k] = c.values[i].Load()
	}
	return snap
}
