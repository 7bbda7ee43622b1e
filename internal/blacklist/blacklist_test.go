package blacklist

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddContains(t *testing.T) {
	bl := New()
	assert.False(t, bl.Contains("10.0.0.1"))
	bl.Add("10.0.0.1")
	assert.True(t, bl.Contains("10.0.0.1"))
	assert.Equal(t, 1, bl.Len())
}

func TestConcurrentAdd(t *testing.T) {
	bl := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bl.Add("10.0.0.1")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, bl.Len())
}

func TestIdempotentAdd(t *testing.T) {
	bl := New()
	bl.Add("10.0.0.1")
	bl.Add("10.0.0.1")
	assert.Equal(t, 1, bl.Len())
}
