package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("chunker.chunk_size", 600))
	require.NoError(t, store.Set("embedding.model", "nomic-embed-text"))

	v, ok := store.Get("chunker.chunk_size")
	require.True(t, ok)
	assert.Equal(t, 600, v)

	require.NoError(t, store.Set("chunker.chunk_size", 800))
	v, _ = store.Get("chunker.chunk_size")
	assert.Equal(t, 800, v)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_Delete(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("llm.api_key", "sk-secret"))

	require.NoError(t, store.Delete("llm.api_key"))
	require.NoError(t, store.Delete("never.set"))

	_, ok := store.Get("llm.api_key")
	assert.False(t, ok)
	assert.Empty(t, store.Keys())
}

func TestConfigStore_KeysSorted(t *testing.T) {
	store := NewConfigStore()
	for _, k := range []string{"retrieval.top_k", "chunker.overlap", "embedding.provider"} {
		require.NoError(t, store.Set(k, 1))
	}

	assert.Equal(t, []string{"chunker.overlap", "embedding.provider", "retrieval.top_k"}, store.Keys())
}

func TestConfigStore_PersistenceIsNoOp(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("storage.backend", "bolt"))

	require.NoError(t, store.Save())
	require.NoError(t, store.Load())

	v, ok := store.Get("storage.backend")
	require.True(t, ok)
	assert.Equal(t, "bolt", v)
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_InstancesAreIsolated(t *testing.T) {
	a := NewConfigStore()
	b := NewConfigStore()

	require.NoError(t, a.Set("llm.provider", "ollama"))

	_, ok := b.Get("llm.provider")
	assert.False(t, ok)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set(fmt.Sprintf("key.%d", n%5), n)
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.Get("key.0")
			_ = store.Keys()
		}()
	}
	wg.Wait()

	assert.Len(t, store.Keys(), 5)
}
