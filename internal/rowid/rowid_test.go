package rowid

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

func TestGeneratorMonotonic(t *testing.T) {
	g := New()
	a := g.Next()
	b := g.Next()
	c := g.Next()

	assert.Equal(t, types.RowID(1), a)
	assert.Less(t, a, b)
	assert.Less(t, b, c)
	assert.Less(t, a.String(), b.String(), "string form sorts like creation order")
}

func TestGeneratorReserve(t *testing.T) {
	g := NewFrom(10)
	first := g.Reserve(5)
	assert.Equal(t, types.RowID(11), first)
	assert.Equal(t, types.RowID(15), g.Last())
	assert.Equal(t, types.RowID(16), g.Next())
}

func TestGeneratorConcurrentUnique(t *testing.T) {
	g := New()
	const workers, per = 8, 500

	var mu sync.Mutex
	var all []types.RowID
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]types.RowID, 0, per)
			for range per {
				local = append(local, g.Next())
			}
			mu.Lock()
			all = append(all, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, all, workers*per)
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	for i := 1; i < len(all); i++ {
		assert.NotEqual(t, all[i-1], all[i])
	}
}

func TestParseRowIDRoundTrip(t *testing.T) {
	id := New().Reserve(42)
	parsed, err := types.ParseRowID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = types.ParseRowID("zz")
	assert.ErrorIs(t, err, types.ErrInvalidID)
}
