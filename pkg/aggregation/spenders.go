package aggregation

import (
	"github.com/Ramsey-B/thistle/pkg/identity"
	"github.com/Ramsey-B/thistle/pkg/models"
)

// UniqueRealUsers is the number of resolved real users
func UniqueRealUsers(res *identity.Resolution) int {
	if res == nil {
		return 0
	}
	return res.Count()
}

// TopSpender sums paid price per real user and returns the biggest spender together with every
// user id it transacted under. On equal totals the real user whose first order row comes first
// wins.
func TopSpender(orders []models.NormalizedOrder, res *identity.Resolution) (models.Spender, bool) {
	if res == nil || res.Count() == 0 {
		return models.Spender{}, false
	}

	paidByRow := make(map[int]float64, len(orders))
	for _, o := range orders {
		paidByRow[o.Row] += o.PaidPrice
	}

	best := -1
	bestTotal := 0.0
	for i, c := range res.Components {
		total := 0.0
		for _, r := range c.Rows {
			total += paidByRow[r]
		}
		if best == -1 || total > bestTotal {
			best = i
			bestTotal = total
		}
	}

	component := res.Components[best]
	userIDs := make([]string, len(component.UserIDs))
	copy(userIDs, component.UserIDs)

	return models.Spender{
		UserIDs:    userIDs,
		TotalSpent: bestTotal,
		OrderRows:  len(component.Rows),
	}, true
}
