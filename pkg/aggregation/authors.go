package aggregation

import (
	"sort"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
)

// UniqueAuthorSets counts distinct canonical author-set keys across the catalog
func UniqueAuthorSets(books []models.NormalizedBook) int {
	keys := make(map[string]struct{}, len(books))
	for _, b := range books {
		keys[b.AuthorSet] = struct{}{}
	}
	return len(keys)
}

// AuthorRanking holds quantity sold per individual author and per author set.
// The two rankings answer different questions and must not be mixed up: a book written by
// John and Paul counts toward John, toward Paul, and toward the set "John;Paul".
type AuthorRanking struct {
	ByAuthor    []models.AuthorSales
	ByAuthorSet []models.AuthorSales
	// Unmatched counts orders whose book id is not in the catalog
	Unmatched int
}

// TopAuthor returns the individual author with the most units sold
func (r AuthorRanking) TopAuthor() (models.AuthorSales, bool) {
	if len(r.ByAuthor) == 0 {
		return models.AuthorSales{}, false
	}
	return r.ByAuthor[0], true
}

// TopAuthorSet returns the author set with the most units sold
func (r AuthorRanking) TopAuthorSet() (models.AuthorSales, bool) {
	if len(r.ByAuthorSet) == 0 {
		return models.AuthorSales{}, false
	}
	return r.ByAuthorSet[0], true
}

// AuthorPopularity joins orders to books by book id and accumulates quantity sold per
// individual author and per author set. When a book id appears more than once the first book
// wins. Orders for unknown books are skipped.
func AuthorPopularity(orders []models.NormalizedOrder, books []models.NormalizedBook) AuthorRanking {
	setByBook := make(map[string]string, len(books))
	for _, b := range books {
		if _, ok := setByBook[b.ID]; !ok {
			setByBook[b.ID] = b.AuthorSet
		}
	}

	byAuthor := make(map[string]int64)
	bySet := make(map[string]int64)
	unmatched := 0
	for _, o := range orders {
		set, ok := setByBook[o.BookID]
		if !ok {
			unmatched++
			continue
		}
		bySet[set] += o.Quantity
		for _, author := range normalizers.SplitAuthorSet(set) {
			byAuthor[author] += o.Quantity
		}
	}

	return AuthorRanking{
		ByAuthor:    rankSales(byAuthor),
		ByAuthorSet: rankSales(bySet),
		Unmatched:   unmatched,
	}
}

// rankSales orders by quantity descending, ties broken by name
func rankSales(totals map[string]int64) []models.AuthorSales {
	ranked := make([]models.AuthorSales, 0, len(totals))
	for name, qty := range totals {
		ranked = append(ranked, models.AuthorSales{Name: name, Quantity: qty})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Quantity != ranked[j].Quantity {
			return ranked[i].Quantity > ranked[j].Quantity
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}
