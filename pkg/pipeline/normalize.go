package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	thistleerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/identity"
	"github.com/Ramsey-B/thistle/pkg/loader"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
)

// minChunkSize keeps small tables from being split into goroutines that do nothing
const minChunkSize = 256

// NormalizedDataset is the output of the normalize stage
type NormalizedDataset struct {
	Users  []models.UserRecord
	Books  []models.NormalizedBook
	Orders []models.NormalizedOrder
	Stats  models.RunStats
}

// IdentityRows turns the normalized orders into identity graph input
func (n *NormalizedDataset) IdentityRows() []identity.IdentityRow {
	rows := make([]identity.IdentityRow, len(n.Orders))
	for i, o := range n.Orders {
		rows[i] = identity.IdentityRow{
			Index:      o.Row,
			UserID:     o.UserID,
			Identities: o.Identities,
		}
	}
	return rows
}

func (p *Pipeline) normalize(ctx context.Context, ds *loader.Dataset, now time.Time) (*NormalizedDataset, error) {
	users := normalizers.CleanUsers(ds.Users)
	books := normalizers.NormalizeBooks(ds.Books, now)

	identities := make(map[string][]models.Identity, len(users.Users))
	for _, u := range users.Users {
		identities[u.ID] = append(identities[u.ID], u.Identity())
	}

	orders, err := p.normalizeOrders(ctx, ds.Orders, identities)
	if err != nil {
		return nil, err
	}

	stats := models.RunStats{
		UsersLoaded:   len(ds.Users),
		UsersKept:     len(users.Users),
		UsersRejected: users.Rejected,
		BooksLoaded:   len(ds.Books),
		BooksKept:     len(books),
		OrdersLoaded:  len(ds.Orders),
	}
	for _, o := range orders {
		if o.Timestamp == nil {
			stats.OrdersUndated++
		}
		if o.UnitPriceUSD == 0 {
			stats.ZeroPriceRows++
		}
	}

	return &NormalizedDataset{
		Users:  users.Users,
		Books:  books,
		Orders: orders,
		Stats:  stats,
	}, nil
}

// normalizeOrders derives price, timestamp and identities for every order. Orders are split into
// contiguous chunks normalized concurrently; each chunk owns its slice of the output.
// When several rows fail, the error for the lowest row is returned.
func (p *Pipeline) normalizeOrders(ctx context.Context, orders []models.OrderRecord, identities map[string][]models.Identity) ([]models.NormalizedOrder, error) {
	out := make([]models.NormalizedOrder, len(orders))
	if len(orders) == 0 {
		return out, nil
	}

	workers := max(p.config.Workers, 1)
	chunkSize := max((len(orders)+workers-1)/workers, minChunkSize)
	chunks := (len(orders) + chunkSize - 1) / chunkSize
	errs := make([]error, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for c := 0; c < chunks; c++ {
		if gctx.Err() != nil {
			break
		}
		c := c
		start := c * chunkSize
		end := min(start+chunkSize, len(orders))
		g.Go(func() error {
			for i := start; i < end; i++ {
				normalized, err := p.normalizeOrder(i, orders[i], identities)
				if err != nil {
					errs[c] = err
					return err
				}
				out[i] = normalized
			}
			return nil
		})
	}

	waitErr := g.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	if waitErr != nil {
		return nil, waitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) normalizeOrder(row int, o models.OrderRecord, identities map[string][]models.Identity) (models.NormalizedOrder, error) {
	ts, err := normalizers.NormalizeTimestamp(o.TimestampRaw)
	if err != nil {
		return models.NormalizedOrder{}, thistleerrors.WrapDataQualityError(err).
			AddTable("orders").
			AddRow(row).
			AddRecordID(o.ID).
			AddField("timestamp").
			AddValue(o.TimestampRaw)
	}

	price := normalizers.NormalizePriceWithRate(o.UnitPriceRaw, p.config.EURToUSDRate)

	return models.NormalizedOrder{
		OrderRecord:  o,
		Row:          row,
		Timestamp:    ts,
		Date:         normalizers.CalendarDate(ts),
		UnitPriceUSD: price,
		PaidPrice:    float64(o.Quantity) * price,
		Identities:   identities[o.UserID],
	}, nil
}
