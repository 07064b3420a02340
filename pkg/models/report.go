package models

import "time"

// DayRevenue is the summed paid price of one calendar date
type DayRevenue struct {
	Date    string  `json:"date" db:"date"`
	Revenue float64 `json:"revenue" db:"revenue"`
}

// AuthorSales is the quantity sold for an author or an author set
type AuthorSales struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

// Spender is the resolved real user with the highest total paid price
type Spender struct {
	UserIDs    []string `json:"user_ids"`
	TotalSpent float64  `json:"total_spent"`
	OrderRows  int      `json:"order_rows"`
}

// Report is the contract surface with the dashboard and reporting layer.
// Consumers render these values; they never recompute them.
type Report struct {
	RunID                string        `json:"run_id"`
	Dataset              string        `json:"dataset"`
	GeneratedAt          time.Time     `json:"generated_at"`
	Top5Days             []DayRevenue  `json:"top5_days"`
	DailyRevenue         []DayRevenue  `json:"daily_revenue"`
	UniqueRealUsers      int           `json:"unique_real_users"`
	UniqueAuthorSets     int           `json:"unique_author_sets"`
	MostPopularAuthor    string        `json:"most_popular_author"`
	MostPopularAuthorSet string        `json:"most_popular_author_set"`
	TopAuthors           []AuthorSales `json:"top_authors,omitempty"`
	TopSpender           Spender       `json:"top_spender"`
	TopSpenderUserIDs    []string      `json:"top_spender_user_ids"`
	Stats                RunStats      `json:"stats"`
}

// RunStats counts rows through each stage of a run
type RunStats struct {
	UsersLoaded    int `json:"users_loaded"`
	UsersKept      int `json:"users_kept"`
	UsersRejected  int `json:"users_rejected"`
	BooksLoaded    int `json:"books_loaded"`
	BooksKept      int `json:"books_kept"`
	OrdersLoaded   int `json:"orders_loaded"`
	OrdersUndated  int `json:"orders_undated"`
	ZeroPriceRows  int `json:"zero_price_rows"`
	IdentityValues int `json:"identity_values"`
}
