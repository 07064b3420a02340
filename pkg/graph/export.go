package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/thistle/pkg/identity"
	"github.com/Ramsey-B/thistle/pkg/pipeline"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// DefaultBatchSize is the number of rows sent per UNWIND statement
const DefaultBatchSize = 500

const (
	mergeRealUsers = `
		UNWIND $rows AS row
		MERGE (u:RealUser {run_id: row.run_id, id: row.id})
		SET u.user_ids = row.user_ids, u.order_count = row.order_count, u.total_spent = row.total_spent
	`
	mergeOrders = `
		UNWIND $rows AS row
		MERGE (o:OrderRow {run_id: row.run_id, row: row.row})
		SET o.order_id = row.order_id, o.user_id = row.user_id, o.paid_price = row.paid_price
		WITH o, row
		MATCH (u:RealUser {run_id: row.run_id, id: row.real_user})
		MERGE (o)-[:BELONGS_TO]->(u)
	`
	mergeValues = `
		UNWIND $rows AS row
		MERGE (v:IdentityValue {field: row.field, value: row.value})
		WITH v, row
		MATCH (o:OrderRow {run_id: row.run_id, row: row.row})
		MERGE (o)-[:HAS_VALUE]->(v)
	`
)

// Export is the identity graph of a run as batched statement parameters
type Export struct {
	RealUsers []map[string]any
	Orders    []map[string]any
	Values    []map[string]any
}

// BuildExport flattens the resolution of a run into node and edge rows.
// Real user ids are "<run id>:<component position>".
func BuildExport(result *pipeline.Result) Export {
	runID := result.Report.RunID
	res := result.Resolution
	orders := result.Dataset.Orders

	paidByRow := make(map[int]float64, len(orders))
	for _, o := range orders {
		paidByRow[o.Row] += o.PaidPrice
	}

	export := Export{}
	for i, c := range res.Components {
		total := 0.0
		for _, r := range c.Rows {
			total += paidByRow[r]
		}
		export.RealUsers = append(export.RealUsers, map[string]any{
			"run_id":      runID,
			"id":          realUserID(runID, i),
			"user_ids":    append([]string{}, c.UserIDs...),
			"order_count": len(c.Rows),
			"total_spent": total,
		})
	}

	for _, o := range orders {
		component, ok := res.ComponentOf(o.Row)
		if !ok {
			continue
		}
		export.Orders = append(export.Orders, map[string]any{
			"run_id":     runID,
			"row":        o.Row,
			"order_id":   o.ID,
			"user_id":    o.UserID,
			"paid_price": o.PaidPrice,
			"real_user":  realUserID(runID, component),
		})

		row := identity.IdentityRow{Index: o.Row, UserID: o.UserID, Identities: o.Identities}
		for _, v := range identity.RowValues(row) {
			export.Values = append(export.Values, map[string]any{
				"run_id": runID,
				"row":    o.Row,
				"field":  v.Field,
				"value":  v.Value,
			})
		}
	}

	return export
}

func realUserID(runID string, component int) string {
	return fmt.Sprintf("%s:%d", runID, component)
}

// Exporter writes the identity graph of each run
type Exporter struct {
	client    *Client
	logger    ectologger.Logger
	batchSize int
}

// NewExporter creates a new identity graph exporter
func NewExporter(client *Client, logger ectologger.Logger) *Exporter {
	return &Exporter{
		client:    client,
		logger:    logger,
		batchSize: DefaultBatchSize,
	}
}

func (e *Exporter) Name() string {
	return "graph"
}

// Write merges real users, order rows and identity values into the graph
func (e *Exporter) Write(ctx context.Context, result *pipeline.Result) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Exporter.Write")
	defer span.End()

	export := BuildExport(result)
	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":     result.Report.RunID,
		"real_users": len(export.RealUsers),
		"orders":     len(export.Orders),
		"values":     len(export.Values),
	})

	steps := []struct {
		name   string
		cypher string
		rows   []map[string]any
	}{
		{"real users", mergeRealUsers, export.RealUsers},
		{"orders", mergeOrders, export.Orders},
		{"identity values", mergeValues, export.Values},
	}
	for _, step := range steps {
		for _, batch := range batches(step.rows, e.batchSize) {
			_, err := e.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
				params := make([]any, len(batch))
				for i, row := range batch {
					params[i] = row
				}
				result, err := tx.Run(ctx, step.cypher, map[string]any{"rows": params})
				if err != nil {
					return nil, err
				}
				return result.Consume(ctx)
			})
			if err != nil {
				log.WithError(err).Errorf("Failed to export %s", step.name)
				return fmt.Errorf("failed to export %s: %w", step.name, err)
			}
		}
	}

	log.Info("Exported identity graph")
	return nil
}

func batches(rows []map[string]any, size int) [][]map[string]any {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]map[string]any
	for start := 0; start < len(rows); start += size {
		out = append(out, rows[start:min(start+size, len(rows))])
	}
	return out
}
