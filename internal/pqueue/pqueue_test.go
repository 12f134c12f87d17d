package pqueue

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueEmpty(t *testing.T) {
	q := New(4)
	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.Contains(0))
}

func TestInsertAndExtractOrder(t *testing.T) {
	q := New(5)
	q.Insert(0, 5.0)
	q.Insert(1, 1.0)
	q.Insert(2, 3.0)
	q.Insert(3, 4.0)
	q.Insert(4, 2.0)

	require.Equal(t, 5, q.Len())

	wantOrder := []int{1, 4, 2, 3, 0}
	for _, wantID := range wantOrder {
		require.False(t, q.Empty())
		id, _ := q.ExtractMin()
		assert.Equal(t, wantID, id)
	}
	assert.True(t, q.Empty())
}

func TestDecreaseKeyReordersExtraction(t *testing.T) {
	q := New(3)
	q.Insert(0, 10.0)
	q.Insert(1, 20.0)
	q.Insert(2, 30.0)

	q.DecreaseKey(2, 1.0)

	id, key := q.ExtractMin()
	assert.Equal(t, 2, id)
	assert.Equal(t, 1.0, key)
}

func TestDecreaseKeyNoOpWhenNotSmaller(t *testing.T) {
	q := New(2)
	q.Insert(0, 5.0)
	q.DecreaseKey(0, 10.0)

	_, key := q.ExtractMin()
	assert.Equal(t, 5.0, key, "decrease_key with a larger key must be a no-op")
}

func TestDecreaseKeyInsertsWhenAbsent(t *testing.T) {
	q := New(2)
	q.DecreaseKey(1, 7.0)

	assert.True(t, q.Contains(1))
	id, key := q.ExtractMin()
	assert.Equal(t, 1, id)
	assert.Equal(t, 7.0, key)
}

func TestContainsReflectsExtraction(t *testing.T) {
	q := New(2)
	q.Insert(0, 1.0)
	assert.True(t, q.Contains(0))
	q.ExtractMin()
	assert.False(t, q.Contains(0))
}

func TestRandomizedAgainstSortedReference(t *testing.T) {
	const n = 200
	r := rand.New(rand.NewSource(42))

	keys := make([]float64, n)
	q := New(n)
	for id := 0; id < n; id++ {
		keys[id] = r.Float64() * 1000
		q.Insert(id, keys[id])
	}

	// Apply a few decrease-keys, tracking the reference alongside.
	for i := 0; i < 30; i++ {
		id := r.Intn(n)
		delta := r.Float64() * 100
		newKey := keys[id] - delta
		if newKey < keys[id] {
			keys[id] = newKey
			q.DecreaseKey(id, newKey)
		}
	}

	var extracted []float64
	for !q.Empty() {
		_, key := q.ExtractMin()
		extracted = append(extracted, key)
	}

	require.Len(t, extracted, n)
	for i := 1; i < len(extracted); i++ {
		assert.LessOrEqual(t, extracted[i-1], extracted[i], "extraction order must be non-decreasing")
	}

	sort.Float64s(keys)
	assert.Equal(t, keys, extracted, "extracted keys must match the sorted reference")
}
