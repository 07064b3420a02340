package normalizers

import (
	"time"

	"github.com/Ramsey-B/thistle/pkg/fingerprint"
	"github.com/Ramsey-B/thistle/pkg/models"
)

// UserFieldChain is applied to every user attribute before deduplication
var UserFieldChain = []string{"nullish"}

// UserCleaning is the outcome of CleanUsers
type UserCleaning struct {
	Users      []models.UserRecord
	Duplicates int
	Rejected   int
}

// CleanUsers builds the authoritative user table: missing attributes become "", rows identical in
// every field are collapsed (first kept) and rows whose email fails IsValidEmail are dropped.
// Input order is preserved.
func CleanUsers(users []models.UserRecord) UserCleaning {
	result := UserCleaning{Users: make([]models.UserRecord, 0, len(users))}
	seen := make(map[models.UserRecord]bool, len(users))

	for _, u := range users {
		u.Name = ApplyChain(u.Name, UserFieldChain...)
		u.Address = ApplyChain(u.Address, UserFieldChain...)
		u.Phone = ApplyChain(u.Phone, UserFieldChain...)
		u.Email = ApplyChain(u.Email, UserFieldChain...)

		if seen[u] {
			result.Duplicates++
			continue
		}
		seen[u] = true

		if !IsValidEmail(u.Email) {
			result.Rejected++
			continue
		}
		result.Users = append(result.Users, u)
	}

	return result
}

// NormalizeBooks sanitizes years, derives author-set keys and collapses books that are identical
// in every field after sanitation. Input order is preserved.
func NormalizeBooks(books []models.BookRecord, now time.Time) []models.NormalizedBook {
	normalized := make([]models.NormalizedBook, 0, len(books))
	seen := make(map[string]bool, len(books))

	for _, b := range books {
		nb := models.NormalizedBook{
			BookRecord: b,
			Year:       SanitizeYear(b.YearRaw, now),
			AuthorSet:  CanonicalAuthorSet(b.Author),
		}

		key := fingerprint.Generate(map[string]any{
			"id":     nb.ID,
			"author": nb.Author,
			"year":   nb.Year,
			"extra":  extraOrEmpty(nb.Extra),
		})
		if seen[key] {
			continue
		}
		seen[key] = true
		normalized = append(normalized, nb)
	}

	return normalized
}

func extraOrEmpty(extra map[string]any) map[string]any {
	if extra == nil {
		return map[string]any{}
	}
	return extra
}
