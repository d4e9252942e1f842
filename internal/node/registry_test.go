package node

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCapacity(t *testing.T) {
	r := NewRegistry[int](1)

	require.NoError(t, r.Insert("a", 1))
	assert.True(t, r.Full())

	err := r.Insert("b", 2)
	assert.ErrorIs(t, err, ErrNodesLimitReached)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryUnlimited(t *testing.T) {
	r := NewRegistry[int](0)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.Insert(id, 0))
	}
	assert.False(t, r.Full())
	assert.Equal(t, []string{"a", "b", "c"}, r.IDs())
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry[string](2)

	_, err := r.Get("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNodeNotFound))

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "missing", nodeErr.NodeID)
	assert.True(t, Gone(err))
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	r := NewRegistry[int](0)
	require.NoError(t, r.Insert("a", 1))
	assert.Error(t, r.Insert("a", 2))

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestRegistryConcurrentInsertNeverExceedsMax(t *testing.T) {
	const max = 3
	r := NewRegistry[int](max)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = r.Insert(string(rune('a'+i)), i)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, max, r.Len())
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry[int](0)
	require.NoError(t, r.Insert("a", 1))

	assert.True(t, r.Remove("a"))
	assert.False(t, r.Remove("a"))
	assert.Equal(t, 0, r.Len())
}
