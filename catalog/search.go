// Package catalog implements the in-memory listing operations the product
// pages need: category filter, fuzzy text search, and sorting. The rows are
// already fetched; nothing here talks to the store.
package catalog

import (
	"sort"
	"strings"

	"github.com/kamaub/marketplace_api/models"
	"github.com/sahilm/fuzzy"
)

type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
	SortNameAsc   SortKey = "name_asc"
)

type productSource []models.Product

func (p productSource) String(i int) string {
	return p[i].Name + " " + p[i].Category + " " + p[i].Info
}

func (p productSource) Len() int { return len(p) }

// Search ranks products against the term with the fuzzy matcher; an empty
// term returns the input unchanged.
func Search(products []models.Product, term string) []models.Product {
	term = strings.TrimSpace(term)
	if term == "" {
		return products
	}

	matches := fuzzy.FindFrom(term, productSource(products))
	out := make([]models.Product, 0, len(matches))
	for _, m := range matches {
		out = append(out, products[m.Index])
	}
	return out
}

// FilterCategory keeps products of the given category, case-insensitively.
// An empty category keeps everything.
func FilterCategory(products []models.Product, category string) []models.Product {
	if category == "" {
		return products
	}
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out
}

// Sort returns a sorted copy. An unknown key falls back to newest-first.
func Sort(products []models.Product, key SortKey) []models.Product {
	out := make([]models.Product, len(products))
	copy(out, products)

	switch key {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	case SortNameAsc:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out
}

type profileSource []models.Profile

func (p profileSource) String(i int) string { return p[i].Username }

func (p profileSource) Len() int { return len(p) }

// SearchProfiles ranks user profiles by username for the chat directory.
func SearchProfiles(profiles []models.Profile, term string) []models.Profile {
	term = strings.TrimSpace(term)
	if term == "" {
		return profiles
	}

	matches := fuzzy.FindFrom(term, profileSource(profiles))
	out := make([]models.Profile, 0, len(matches))
	for _, m := range matches {
		out = append(out, profiles[m.Index])
	}
	return out
}
