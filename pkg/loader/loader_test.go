package loader

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

const usersCSV = "\ufeffid,name,address,phone,email\n" +
	"1,Ann,\"Main St 1, Springfield\",555-1,ann@x.com\n" +
	"2,Bob,,,\n" +
	"3,Cid\n"

const ordersJSON = `[
  {"id": 10, "user_id": 1, "book_id": 100, "quantity": 2, "timestamp": "2024-01-01 10:00", "unit_price": "$71.00"},
  {"id": 11, "user_id": 2, "book_id": 101, "quantity": 1, "timestamp": null, "unit_price": 12.5},
  {"id": 12, "user_id": 3, "book_id": 100, "quantity": 3, "timestamp": "1/2/2024", "unit_price": [55, 49, 8364]},
  {"id": 13, "user_id": 3, "book_id": 100, "quantity": 1, "timestamp": "1/2/2024", "unit_price": null}
]`

const booksYAML = `
- :id: 100
  :author: John, Paul
  :year: 1999
  :title: Together
- id: 101
  author: John
  year: "abc"
`

func writeDataset(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func TestLoadUsers(t *testing.T) {
	users, err := LoadUsers(strings.NewReader(usersCSV))
	require.NoError(t, err)

	assert.Equal(t, []models.UserRecord{
		{ID: "1", Name: "Ann", Address: "Main St 1, Springfield", Phone: "555-1", Email: "ann@x.com"},
		{ID: "2", Name: "Bob"},
		{ID: "3", Name: "Cid"},
	}, users)
}

func TestLoadUsers_HeaderOrder(t *testing.T) {
	users, err := LoadUsers(strings.NewReader("email,id\nz@x.com,7\n"))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "7", users[0].ID)
	assert.Equal(t, "z@x.com", users[0].Email)
}

func TestLoadUsers_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "no id column", input: "name,email\nAnn,a@x.com\n"},
		{name: "bad quoting", input: "id,name\n1,\"Ann\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadUsers(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestLoadOrders(t *testing.T) {
	orders, err := LoadOrders(strings.NewReader(ordersJSON), false)
	require.NoError(t, err)
	require.Len(t, orders, 4)

	assert.Equal(t, models.OrderRecord{
		ID:           "10",
		UserID:       "1",
		BookID:       "100",
		Quantity:     2,
		TimestampRaw: "2024-01-01 10:00",
		UnitPriceRaw: models.TextPrice("$71.00"),
	}, orders[0])
	assert.Equal(t, "", orders[1].TimestampRaw)
	assert.Equal(t, models.NumberPrice(12.5), orders[1].UnitPriceRaw)
	assert.Equal(t, models.CodesPrice(55, 49, 8364), orders[2].UnitPriceRaw)
	assert.Equal(t, models.RawPriceNull, orders[3].UnitPriceRaw.Kind)
}

func TestLoadOrders_Lines(t *testing.T) {
	input := `{"id": "a", "user_id": "u", "book_id": "b", "quantity": 1, "timestamp": "2024-01-01", "unit_price": "5€"}

{"id": "b", "user_id": "u", "book_id": "b", "quantity": 2, "timestamp": "2024-01-02", "unit_price": 3}
`
	orders, err := LoadOrders(strings.NewReader(input), true)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "b", orders[1].ID)
	assert.Equal(t, int64(2), orders[1].Quantity)
}

func TestLoadOrders_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		jsonLines bool
	}{
		{name: "invalid json", input: `[{"id": 1`},
		{name: "not an array", input: `{"id": 1}`},
		{name: "array of scalars", input: `[1, 2]`},
		{name: "bad line", input: "{\"id\": 1}\nnope\n", jsonLines: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadOrders(strings.NewReader(tt.input), tt.jsonLines)
			assert.Error(t, err)
		})
	}
}

func TestLoadBooks(t *testing.T) {
	books, err := LoadBooks(strings.NewReader(booksYAML))
	require.NoError(t, err)
	require.Len(t, books, 2)

	assert.Equal(t, "100", books[0].ID)
	assert.Equal(t, "John, Paul", books[0].Author)
	assert.Equal(t, 1999, books[0].YearRaw)
	assert.Equal(t, map[string]any{":title": "Together"}, books[0].Extra)

	assert.Equal(t, "101", books[1].ID)
	assert.Equal(t, "abc", books[1].YearRaw)
	assert.Nil(t, books[1].Extra)
}

func TestLoadBooks_Empty(t *testing.T) {
	books, err := LoadBooks(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestLoader_Load(t *testing.T) {
	dir := writeDataset(t, map[string]string{
		UsersFile:  usersCSV,
		OrdersFile: ordersJSON,
		BooksFile:  booksYAML,
	})

	ds, err := NewLoader(testLogger()).Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, dir, ds.Dir)
	assert.Len(t, ds.Users, 3)
	assert.Len(t, ds.Orders, 4)
	assert.Len(t, ds.Books, 2)
}

func TestLoader_Load_JSONLines(t *testing.T) {
	dir := writeDataset(t, map[string]string{
		UsersFile:       usersCSV,
		OrdersLinesFile: `{"id": "a", "user_id": "1", "book_id": "100", "quantity": 1, "timestamp": "2024-01-01", "unit_price": 1}`,
		BooksFile:       booksYAML,
	})

	ds, err := NewLoader(testLogger()).Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, ds.Orders, 1)
}

func TestLoader_Load_MissingFiles(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		missing string
	}{
		{name: "no users", files: map[string]string{OrdersFile: ordersJSON, BooksFile: booksYAML}, missing: UsersFile},
		{name: "no orders", files: map[string]string{UsersFile: usersCSV, BooksFile: booksYAML}, missing: OrdersFile},
		{name: "no books", files: map[string]string{UsersFile: usersCSV, OrdersFile: ordersJSON}, missing: BooksFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeDataset(t, tt.files)
			_, err := NewLoader(testLogger()).Load(context.Background(), dir)
			require.Error(t, err)
			assert.ErrorIs(t, err, fs.ErrNotExist)
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestLoader_Load_MalformedFileNamed(t *testing.T) {
	dir := writeDataset(t, map[string]string{
		UsersFile:  usersCSV,
		OrdersFile: ordersJSON,
		BooksFile:  "- [unclosed",
	})

	_, err := NewLoader(testLogger()).Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), BooksFile)
}
