package importer

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupSeededNames(t *testing.T) {
	d := NewDedup([]string{"Alice"})

	assert.False(t, d.Admit("Alice"))
	assert.True(t, d.Admit("Bob"))
	assert.False(t, d.Admit("Bob"))
	assert.Equal(t, 2, d.Len())
}

func TestDedupRelease(t *testing.T) {
	d := NewDedup(nil)
	assert.True(t, d.Admit("Carol"))
	d.Release("Carol")
	assert.True(t, d.Admit("Carol"))
}

func TestDedupConcurrentAdmitOnce(t *testing.T) {
	d := NewDedup(nil)
	var admitted atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.Admit("same") {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), admitted.Load())
}
