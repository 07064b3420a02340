package normalizers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/thistle/pkg/models"
)

func TestCleanUsers(t *testing.T) {
	users := []models.UserRecord{
		{ID: "1", Name: "Ann", Address: "Main St 1", Phone: "555", Email: "ann@x.com"},
		{ID: "1", Name: "Ann", Address: "Main St 1", Phone: "555", Email: "ann@x.com"},
		{ID: "2", Name: "Bob", Address: "NaN", Phone: "", Email: "bob-at-x"},
		{ID: "3", Name: "Cid", Address: "", Phone: "777", Email: "cid@x"},
		{ID: "4", Name: "Dee", Address: "null", Phone: "888", Email: "dee@y.org"},
	}

	result := CleanUsers(users)

	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 2, result.Rejected)
	assert.Equal(t, []models.UserRecord{
		{ID: "1", Name: "Ann", Address: "Main St 1", Phone: "555", Email: "ann@x.com"},
		{ID: "4", Name: "Dee", Address: "", Phone: "888", Email: "dee@y.org"},
	}, result.Users)
}

func TestCleanUsers_DedupeAfterFill(t *testing.T) {
	users := []models.UserRecord{
		{ID: "1", Name: "Ann", Phone: "nan", Email: "ann@x.com"},
		{ID: "1", Name: "Ann", Phone: "", Email: "ann@x.com"},
	}
	result := CleanUsers(users)
	assert.Len(t, result.Users, 1)
	assert.Equal(t, 1, result.Duplicates)
}

func TestNormalizeBooks(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	books := []models.BookRecord{
		{ID: "b1", Author: "Paul, John", YearRaw: 1999},
		{ID: "b1", Author: "Paul, John", YearRaw: 1999},
		{ID: "b2", Author: "John", YearRaw: "3000"},
		{ID: "b2", Author: "John", YearRaw: "abc"},
		{ID: "b3", Author: "John", YearRaw: 2001, Extra: map[string]any{"title": "A"}},
		{ID: "b3", Author: "John", YearRaw: 2001, Extra: map[string]any{"title": "B"}},
	}

	normalized := NormalizeBooks(books, now)

	assert.Len(t, normalized, 4)
	assert.Equal(t, "John;Paul", normalized[0].AuthorSet)
	assert.Equal(t, 1999, normalized[0].Year)
	// Both future and garbage years sanitize to unknown, so those rows collapse
	assert.Equal(t, UnknownYear, normalized[1].Year)
	assert.Equal(t, "b3", normalized[2].ID)
	assert.Equal(t, "B", normalized[3].Extra["title"])
}
