package cart

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/RaikyD/storefront-orders/internal/storefront/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shirt(size string) Line {
	return Line{ProductID: "p1", Name: "Linen shirt", UnitPrice: 500, Size: size}
}

func TestAddItem_MergesOnProductAndSize(t *testing.T) {
	s := Load(storage.NewMemoryStorage())

	require.NoError(t, s.AddItem(shirt("M"), 1))
	require.NoError(t, s.AddItem(shirt("M"), 2))
	require.NoError(t, s.AddItem(shirt("L"), 1))
	require.NoError(t, s.AddItem(Line{ProductID: "p2", UnitPrice: 300}, 0))

	lines := s.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, "L", lines[1].Size)
	assert.Equal(t, 1, lines[2].Quantity, "quantity below one adds one unit")
	assert.Equal(t, 5, s.Count())
}

func TestNoSizeIdentity(t *testing.T) {
	s := Load(storage.NewMemoryStorage())
	require.NoError(t, s.AddItem(shirt(""), 1))
	require.NoError(t, s.AddItem(shirt("  "), 1))
	require.Len(t, s.Lines(), 1)
	assert.Equal(t, 2, s.Lines()[0].Quantity)

	require.NoError(t, s.UpdateQuantity("p1", " ", 5))
	assert.Equal(t, 5, s.Lines()[0].Quantity)

	require.NoError(t, s.RemoveItem("p1", ""))
	assert.Empty(t, s.Lines())
}

func TestUpdateQuantity_RemovesAtZeroOrBelow(t *testing.T) {
	for _, q := range []int{0, -3} {
		s := Load(storage.NewMemoryStorage())
		require.NoError(t, s.AddItem(shirt("M"), 2))
		require.NoError(t, s.AddItem(Line{ProductID: "p2", UnitPrice: 300}, 1))

		require.NoError(t, s.UpdateQuantity("p1", "M", q))
		lines := s.Lines()
		require.Len(t, lines, 1, "quantity %d", q)
		assert.Equal(t, "p2", lines[0].ProductID)
	}
}

func TestRemoveItem_Absent(t *testing.T) {
	s := Load(storage.NewMemoryStorage())
	require.NoError(t, s.AddItem(shirt("M"), 1))
	require.NoError(t, s.RemoveItem("p1", "XL"))
	require.NoError(t, s.RemoveItem("nope", ""))
	assert.Len(t, s.Lines(), 1)
}

func TestPersistReload(t *testing.T) {
	st := storage.NewMemoryStorage()
	s := Load(st)
	require.NoError(t, s.AddItem(shirt("M"), 2))
	require.NoError(t, s.AddItem(Line{ProductID: "p2", Name: "Scarf", UnitPrice: 300}, 1))
	require.NoError(t, s.AddItem(shirt("S"), 1))

	reloaded := Load(st)
	assert.Equal(t, s.Lines(), reloaded.Lines())
	assert.Equal(t, 1600.0, reloaded.Subtotal())

	require.NoError(t, reloaded.Clear())
	raw, ok, err := st.Get(storage.CartKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[]`, string(raw))
	assert.Empty(t, Load(st).Lines())
}

func TestLoad_CorruptOrMissing(t *testing.T) {
	st := storage.NewMemoryStorage()
	assert.Empty(t, Load(st).Lines())

	require.NoError(t, st.Set(storage.CartKey, []byte("{broken")))
	assert.Empty(t, Load(st).Lines())

	require.NoError(t, st.Set(storage.CartKey, []byte(`{"productId":"p1"}`)))
	assert.Empty(t, Load(st).Lines())
}

func TestLoad_SanitizesStoredLines(t *testing.T) {
	st := storage.NewMemoryStorage()
	require.NoError(t, st.Set(storage.CartKey, []byte(`[
		{"productId":"p1","size":"M","price":500,"quantity":1},
		{"productId":"p1","size":"M","price":500,"quantity":2},
		{"productId":"p2","price":300,"quantity":0},
		{"productId":"","price":1,"quantity":1}
	]`)))
	lines := Load(st).Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

type failingStorage struct{ storage.Storage }

func (failingStorage) Set(string, []byte) error { return errors.New("quota exceeded") }

func TestPersistError(t *testing.T) {
	s := Load(failingStorage{storage.NewMemoryStorage()})
	err := s.AddItem(shirt("M"), 1)
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestAddItem_Rejects(t *testing.T) {
	s := Load(storage.NewMemoryStorage())
	assert.Error(t, s.AddItem(Line{}, 1))
	assert.Error(t, s.AddItem(Line{ProductID: "p", UnitPrice: -1}, 1))
}

// Random operation sequences never produce duplicate or non-positive lines.
func TestRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	products := []string{"p1", "p2", "p3"}
	sizes := []string{"", " ", "S", "M"}

	for run := 0; run < 50; run++ {
		st := storage.NewMemoryStorage()
		s := Load(st)
		for op := 0; op < 40; op++ {
			p := products[rng.Intn(len(products))]
			sz := sizes[rng.Intn(len(sizes))]
			switch rng.Intn(3) {
			case 0:
				require.NoError(t, s.AddItem(Line{ProductID: p, Size: sz, UnitPrice: 10}, rng.Intn(3)+1))
			case 1:
				require.NoError(t, s.UpdateQuantity(p, sz, rng.Intn(5)-2))
			case 2:
				require.NoError(t, s.RemoveItem(p, sz))
			}

			seen := map[[2]string]bool{}
			for _, l := range s.Lines() {
				k := [2]string{l.ProductID, normalizeSize(l.Size)}
				require.False(t, seen[k], "duplicate line %v", k)
				seen[k] = true
				require.Positive(t, l.Quantity)
			}
		}
		assert.Equal(t, s.Lines(), Load(st).Lines())
	}
}
