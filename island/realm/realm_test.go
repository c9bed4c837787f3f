package realm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward-mc/skyblock-services/shared/models"
)

func newRealmWithIslands(t *testing.T, balances map[string]float64) *Realm {
	t.Helper()
	r := NewRealm()
	for id, bank := range balances {
		il := NewIsland(models.NewIsland(id, "owner-"+id, "Island "+id))
		require.NoError(t, il.AddToBank(bank))
		r.Add(il)
	}
	return r
}

func TestTransferMovesFundsAtomically(t *testing.T) {
	r := newRealmWithIslands(t, map[string]float64{"a": 100, "b": 0})

	require.NoError(t, r.Transfer("a", "b", 60))

	a, _ := r.Get("a")
	b, _ := r.Get("b")
	assert.Equal(t, 40.0, a.Bank())
	assert.Equal(t, 60.0, b.Bank())
}

func TestTransferFailsWithoutPartialDebit(t *testing.T) {
	r := newRealmWithIslands(t, map[string]float64{"a": 50, "b": 10})

	err := r.Transfer("a", "b", 100)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	a, _ := r.Get("a")
	b, _ := r.Get("b")
	assert.Equal(t, 50.0, a.Bank())
	assert.Equal(t, 10.0, b.Bank())

	assert.ErrorIs(t, r.Transfer("a", "a", 10), ErrSameIsland)
	assert.ErrorIs(t, r.Transfer("a", "b", -5), ErrNegativeAmount)
	assert.ErrorIs(t, r.Transfer("missing", "b", 5), ErrIslandNotFound)
	assert.ErrorIs(t, r.Transfer("a", "missing", 5), ErrIslandNotFound)
}

func TestOpposingTransfersConserveTotalAndNeverDeadlock(t *testing.T) {
	r := newRealmWithIslands(t, map[string]float64{"a": 10000, "b": 10000})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = r.Transfer("a", "b", 1)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = r.Transfer("b", "a", 1)
			}
		}()
	}
	wg.Wait()

	a, _ := r.Get("a")
	b, _ := r.Get("b")
	assert.Equal(t, 20000.0, a.Bank()+b.Bank(), "transfers move funds, never create or destroy them")
	assert.GreaterOrEqual(t, a.Bank(), 0.0)
	assert.GreaterOrEqual(t, b.Bank(), 0.0)
}

func TestRealmRegistry(t *testing.T) {
	r := newRealmWithIslands(t, map[string]float64{"a": 0, "b": 0, "c": 0})
	assert.Equal(t, 3, r.Len())

	seen := map[string]bool{}
	r.ForEach(func(il *Island) {
		seen[il.ID()] = true
	})
	assert.Len(t, seen, 3)

	removed, ok := r.Remove("b")
	require.True(t, ok)
	assert.Equal(t, "b", removed.ID())
	assert.Equal(t, 2, r.Len())

	_, ok = r.Get("b")
	assert.False(t, ok)
	_, ok = r.Remove("b")
	assert.False(t, ok)
}
