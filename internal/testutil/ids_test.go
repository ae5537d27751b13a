package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialIDs_StartsAtOne(t *testing.T) {
	ids := NewSequentialIDs("")
	assert.Equal(t, "evt-000001", ids.Next())
	assert.Equal(t, "evt-000002", ids.Next())
	assert.Equal(t, int64(2), ids.Count())
}

func TestSequentialIDs_Reset(t *testing.T) {
	ids := NewSequentialIDs("run")
	ids.Next()
	ids.Next()

	ids.Reset()
	assert.Equal(t, int64(0), ids.Count())
	assert.Equal(t, "run-000001", ids.Next())
}

func TestSequentialIDs_ThreadSafe(t *testing.T) {
	ids := NewSequentialIDs("x")
	const numGoroutines = 50
	const callsPerGoroutine = 20

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				id := ids.Next()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, numGoroutines*callsPerGoroutine)
	assert.Equal(t, int64(numGoroutines*callsPerGoroutine), ids.Count())
}
