package catalog

import (
	"testing"
	"time"

	"github.com/kamaub/marketplace_api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProducts() []models.Product {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return []models.Product{
		{ID: 1, Name: "Mechanical Keyboard", Category: "Electronics", Info: "tenkeyless", Price: 89.99, CreatedAt: base},
		{ID: 2, Name: "Walnut Desk", Category: "Furniture", Info: "solid wood", Price: 450, CreatedAt: base.Add(time.Hour)},
		{ID: 3, Name: "USB Microphone", Category: "electronics", Info: "condenser", Price: 120, CreatedAt: base.Add(2 * time.Hour)},
	}
}

func TestSearch(t *testing.T) {
	products := sampleProducts()

	t.Run("empty term returns input", func(t *testing.T) {
		assert.Equal(t, products, Search(products, "  "))
	})

	t.Run("matches name", func(t *testing.T) {
		got := Search(products, "keyboard")
		require.Len(t, got, 1)
		assert.Equal(t, int64(1), got[0].ID)
	})

	t.Run("matches info", func(t *testing.T) {
		got := Search(products, "condenser")
		require.Len(t, got, 1)
		assert.Equal(t, int64(3), got[0].ID)
	})

	t.Run("no match returns empty", func(t *testing.T) {
		assert.Empty(t, Search(products, "zzzzqqq"))
	})
}

func TestFilterCategory(t *testing.T) {
	products := sampleProducts()

	assert.Equal(t, products, FilterCategory(products, ""))

	got := FilterCategory(products, "ELECTRONICS")
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
}

func TestSort(t *testing.T) {
	products := sampleProducts()

	ids := func(in []models.Product) []int64 {
		out := make([]int64, len(in))
		for i, p := range in {
			out[i] = p.ID
		}
		return out
	}

	assert.Equal(t, []int64{3, 2, 1}, ids(Sort(products, SortNewest)))
	assert.Equal(t, []int64{1, 3, 2}, ids(Sort(products, SortPriceAsc)))
	assert.Equal(t, []int64{2, 3, 1}, ids(Sort(products, SortPriceDesc)))
	assert.Equal(t, []int64{1, 3, 2}, ids(Sort(products, SortNameAsc)))
	assert.Equal(t, []int64{3, 2, 1}, ids(Sort(products, SortKey("bogus"))))

	// Input order is untouched.
	assert.Equal(t, []int64{1, 2, 3}, ids(products))
}

func TestSearchProfiles(t *testing.T) {
	profiles := []models.Profile{
		{Username: "ada_lovelace"},
		{Username: "grace_hopper"},
		{Username: "adalyn"},
	}

	assert.Equal(t, profiles, SearchProfiles(profiles, ""))

	got := SearchProfiles(profiles, "ada")
	require.NotEmpty(t, got)
	for _, p := range got {
		assert.Contains(t, p.Username, "ada")
	}

	// The consecutive match outranks the one split across a separator.
	ranked := SearchProfiles(profiles, "adal")
	require.Len(t, ranked, 2)
	assert.Equal(t, "adalyn", ranked[0].Username)

	assert.Empty(t, SearchProfiles(profiles, "xyz123"))
}
