package query

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarretoPalacios/sistema-de-consulta-ruc-sunat/internal/padron"
)

func rec(ruc string) *padron.Contribuyente {
	return &padron.Contribuyente{RUC: ruc}
}

func TestCacheEvictsOldestFirst(t *testing.T) {
	c := newFIFOCache(2)
	c.Put("A", rec("A"))
	c.Put("B", rec("B"))
	c.Put("C", rec("C"))

	_, ok := c.Get("A")
	assert.False(t, ok, "oldest key evicted")
	_, ok = c.Get("B")
	assert.True(t, ok)
	_, ok = c.Get("C")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCacheUpdateDoesNotEvict(t *testing.T) {
	c := newFIFOCache(2)
	c.Put("A", rec("A"))
	c.Put("B", rec("B"))
	c.Put("A", rec("A2"))

	got, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, "A2", got.RUC)
	_, ok = c.Get("B")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCacheStaysBounded(t *testing.T) {
	c := newFIFOCache(100)
	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("%011d", i)
		c.Put(key, rec(key))
	}
	assert.Equal(t, 100, c.Len())

	// The most recent insertions survive.
	for i := 900; i < 1000; i++ {
		_, ok := c.Get(fmt.Sprintf("%011d", i))
		assert.True(t, ok, "key %d", i)
	}
}

func TestCacheMinimumCapacity(t *testing.T) {
	c := newFIFOCache(0)
	c.Put("A", rec("A"))
	c.Put("B", rec("B"))
	assert.Equal(t, 1, c.Len())
}
