package handle

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	t.Run("insert and get", func(t *testing.T) {
		tbl := New[string](3)
		h := tbl.Insert("a")
		require.NotEqual(t, Invalid, h)
		assert.False(t, tbl.IsReserved(h))

		v, ok := tbl.Get(h)
		require.True(t, ok)
		assert.Equal(t, "a", v)
		assert.Equal(t, 1, tbl.Len())
	})

	t.Run("reserved handles never resolve", func(t *testing.T) {
		tbl := New[string](3)
		for i := Handle(1); i <= 3; i++ {
			assert.True(t, tbl.IsReserved(i))
			_, ok := tbl.Get(i)
			assert.False(t, ok)
		}
		_, ok := tbl.Get(Invalid)
		assert.False(t, ok)
		assert.Greater(t, uint32(tbl.Insert("x")), uint32(3))
	})

	t.Run("removed handle is a tombstone", func(t *testing.T) {
		tbl := New[int](0)
		h := tbl.Insert(7)

		v, ok := tbl.Remove(h)
		require.True(t, ok)
		assert.Equal(t, 7, v)

		_, ok = tbl.Get(h)
		assert.False(t, ok)
		_, ok = tbl.Remove(h)
		assert.False(t, ok, "double remove")
		assert.Equal(t, 0, tbl.Len())
	})

	t.Run("stale handle does not alias a recycled slot", func(t *testing.T) {
		tbl := New[int](0)
		old := tbl.Insert(1)
		tbl.Remove(old)

		fresh := tbl.Insert(2)
		assert.Equal(t, old.index(), fresh.index())
		assert.NotEqual(t, old, fresh)

		_, ok := tbl.Get(old)
		assert.False(t, ok)
		v, ok := tbl.Get(fresh)
		require.True(t, ok)
		assert.Equal(t, 2, v)
	})

	t.Run("range and drain", func(t *testing.T) {
		tbl := New[int](2)
		a := tbl.Insert(1)
		tbl.Insert(2)
		tbl.Insert(3)
		tbl.Remove(a)

		sum := 0
		tbl.Range(func(_ Handle, v int) bool {
			sum += v
			return true
		})
		assert.Equal(t, 5, sum)

		assert.ElementsMatch(t, []int{2, 3}, tbl.Drain())
		assert.Equal(t, 0, tbl.Len())
	})

	t.Run("concurrent use", func(t *testing.T) {
		tbl := New[int](0)
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					h := tbl.Insert(i)
					v, ok := tbl.Get(h)
					assert.True(t, ok)
					assert.Equal(t, i, v)
					tbl.Remove(h)
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 0, tbl.Len())
	})
}
