package bdmc

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextSetGetDelete(t *testing.T) {
	c := NewContext()

	c.Set("line", 0.8)
	assert.Equal(t, 0.8, c.Get("line"))
	assert.Nil(t, c.Get("missing"))

	_, ok := c.Lookup("missing")
	assert.False(t, ok)

	c.Delete("line")
	_, ok = c.Lookup("line")
	assert.False(t, ok)

	// deleting twice is harmless
	c.Delete("line")
}

func TestContextFloat(t *testing.T) {
	c := NewContext()
	c.Set("f", 1.5)
	c.Set("i", 3)
	c.Set("b", true)
	c.Set("s", "nope")

	tests := []struct {
		key  string
		want float64
		ok   bool
	}{
		{"f", 1.5, true},
		{"i", 3, true},
		{"b", 1, true},
		{"s", 0, false},
		{"absent", 0, false},
	}
	for _, tt := range tests {
		got, ok := c.Float(tt.key)
		assert.Equal(t, tt.ok, ok, tt.key)
		assert.Equal(t, tt.want, got, tt.key)
	}
}

func TestContextSnapshotIsACopy(t *testing.T) {
	c := NewContext()
	c.Set("a", 1)

	snap := c.Snapshot()
	snap["b"] = 2
	assert.Nil(t, c.Get("b"))
	assert.Len(t, c.Snapshot(), 1)
}

func TestContextReplace(t *testing.T) {
	c := NewContext()
	c.Set("old", 1)

	c.Replace(map[string]any{"new": 2})
	assert.Nil(t, c.Get("old"))
	assert.Equal(t, 2, c.Get("new"))

	c.Replace(nil)
	assert.Empty(t, c.Snapshot())
	c.Set("after", 3)
	assert.Equal(t, 3, c.Get("after"))
}

func TestContextConcurrentAccess(t *testing.T) {
	c := NewContext()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func(id int) {
			defer wg.Done()
			c.Set(fmt.Sprintf("k%d", id), id)
		}(i)
		go func(id int) {
			defer wg.Done()
			_, _ = c.Float(fmt.Sprintf("k%d", id))
		}(i)
		go func(id int) {
			defer wg.Done()
			c.Delete(fmt.Sprintf("k%d", id/2))
		}(i)
	}
	wg.Wait()
}
