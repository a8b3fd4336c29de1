package query

import "github.com/BarretoPalacios/sistema-de-consulta-ruc-sunat/internal/padron"

// fifoCache is a bounded RUC→record cache with explicit FIFO eviction: a
// fixed-capacity ring of keys in insertion order plus a key→value map. When
// full, the oldest inserted key is evicted. Eviction order is a deliberate
// policy here, not an accident of map iteration.
//
// Not safe for concurrent use; the Service serializes access.
type fifoCache struct {
	capacity int
	keys     []string
	head     int
	full     bool
	values   map[string]*padron.Contribuyente
}

func newFIFOCache(capacity int) *fifoCache {
	if capacity < 1 {
		capacity = 1
	}
	return &fifoCache{
		capacity: capacity,
		keys:     make([]string, capacity),
		values:   make(map[string]*padron.Contribuyente, capacity),
	}
}

func (c *fifoCache) Get(key string) (*padron.Contribuyente, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Put inserts key. Re-inserting an existing key updates the value without
// consuming a ring slot.
func (c *fifoCache) Put(key string, v *padron.Contribuyente) {
	if _, ok := c.values[key]; ok {
		c.values[key] = v
		return
	}
	if c.full {
		delete(c.values, c.keys[c.head])
	}
	c.keys[c.head] = key
	c.values[key] = v
	c.head = (c.head + 1) % c.capacity
	if c.head == 0 && !c.full {
		c.full = len(c.values) == c.capacity
	}
}

func (c *fifoCache) Len() int {
	return len(c.values)
}
