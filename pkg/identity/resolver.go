// Package identity resolves order rows into real users by linking rows that share any
// normalized identifying attribute (email, phone, address or name).
//
// Rows are linked transitively: if A shares an email with B and B shares a phone with C then
// A, B and C are one person. A person who changed one attribute between records is merged;
// a person who changed two attributes at once is not.
package identity

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// IdentityFields are the attributes that link rows, in edge insertion order
var IdentityFields = []string{"email", "phone", "address", "name"}

// IdentityRow is one order row with the identities of its matched users
type IdentityRow struct {
	Index      int
	UserID     string
	Identities []models.Identity
}

// ValueKey identifies a synthetic node of the identity graph
type ValueKey struct {
	Field string
	Value string
}

// Component is one resolved real user
type Component struct {
	// Rows holds the order row indexes in ascending order
	Rows []int `json:"rows"`
	// UserIDs holds the distinct user ids carried by the rows, in row order
	UserIDs []string `json:"user_ids"`
	// Values holds the identity values that link the rows, sorted by field then value
	Values []ValueKey `json:"values,omitempty"`
}

// Resolution is the partition of order rows into real users
type Resolution struct {
	Components []Component
	byRow      map[int]int
	valueCount int
}

// Count returns the number of real users
func (r *Resolution) Count() int {
	return len(r.Components)
}

// ValueCount returns the number of distinct identity values that took part in linking
func (r *Resolution) ValueCount() int {
	return r.valueCount
}

// ComponentOf returns the position in Components of the component holding a row
func (r *Resolution) ComponentOf(row int) (int, bool) {
	idx, ok := r.byRow[row]
	return idx, ok
}

// Resolver builds the identity graph and extracts its connected components
type Resolver struct {
	logger ectologger.Logger
}

// NewResolver creates a new identity resolver
func NewResolver(logger ectologger.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve partitions rows into real users. Every row lands in exactly one component;
// rows without usable identity values are singletons. Component order and contents depend only
// on the input set, not on the order rows are given in.
func (r *Resolver) Resolve(ctx context.Context, rows []IdentityRow) *Resolution {
	_, span := tracing.StartSpan(ctx, "identity.Resolver.Resolve")
	defer span.End()

	set := newDisjointSet(len(rows) * 2)
	rowElem := make(map[int]int, len(rows))
	valueElem := make(map[ValueKey]int)

	// All row elements exist before any edge is added
	for _, row := range rows {
		if _, ok := rowElem[row.Index]; !ok {
			rowElem[row.Index] = set.add()
		}
	}

	for _, row := range rows {
		elem := rowElem[row.Index]
		for _, key := range RowValues(row) {
			ve, ok := valueElem[key]
			if !ok {
				ve = set.add()
				valueElem[key] = ve
			}
			set.union(elem, ve)
		}
	}

	resolution := buildResolution(rows, set, rowElem, valueElem)

	if r.logger != nil {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"rows":            len(rows),
			"identity_values": len(valueElem),
			"real_users":      resolution.Count(),
		}).Debug("Resolved identities")
	}

	return resolution
}

// RowValues returns the identity values a row links to, in field order, without duplicates.
// Blank and placeholder values are skipped.
func RowValues(row IdentityRow) []ValueKey {
	var values []ValueKey
	seen := make(map[ValueKey]bool)
	for _, id := range row.Identities {
		for _, field := range IdentityFields {
			value := normalizers.IdentityValue(id.Get(field))
			if value == "" {
				continue
			}
			key := ValueKey{Field: field, Value: value}
			if seen[key] {
				continue
			}
			seen[key] = true
			values = append(values, key)
		}
	}
	return values
}

func buildResolution(rows []IdentityRow, set *disjointSet, rowElem map[int]int, valueElem map[ValueKey]int) *Resolution {
	sorted := make([]IdentityRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	rootComponent := make(map[int]int)
	components := make([]Component, 0)
	seenUser := make([]map[string]bool, 0)
	seenRow := make(map[int]bool, len(rows))
	byRow := make(map[int]int, len(rows))

	// Rows are visited in ascending index, so components come out ordered by their first row
	for _, row := range sorted {
		if seenRow[row.Index] {
			continue
		}
		seenRow[row.Index] = true

		root := set.find(rowElem[row.Index])
		idx, ok := rootComponent[root]
		if !ok {
			idx = len(components)
			rootComponent[root] = idx
			components = append(components, Component{})
			seenUser = append(seenUser, make(map[string]bool))
		}

		components[idx].Rows = append(components[idx].Rows, row.Index)
		if row.UserID != "" && !seenUser[idx][row.UserID] {
			seenUser[idx][row.UserID] = true
			components[idx].UserIDs = append(components[idx].UserIDs, row.UserID)
		}
		byRow[row.Index] = idx
	}

	for key, elem := range valueElem {
		idx := rootComponent[set.find(elem)]
		components[idx].Values = append(components[idx].Values, key)
	}
	for i := range components {
		values := components[i].Values
		sort.Slice(values, func(a, b int) bool {
			if values[a].Field != values[b].Field {
				return values[a].Field < values[b].Field
			}
			return values[a].Value < values[b].Value
		})
	}

	return &Resolution{
		Components: components,
		byRow:      byRow,
		valueCount: len(valueElem),
	}
}
