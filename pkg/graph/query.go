package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/thistle/pkg/tracing"
)

const aliasesQuery = `
	MATCH (o:OrderRow {run_id: $run_id, user_id: $user_id})-[:BELONGS_TO]->(u:RealUser)
	RETURN DISTINCT u.user_ids AS user_ids
`

// Aliases returns every user id resolved to the same real user as userID in a run
func (c *Client) Aliases(ctx context.Context, runID, userID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Client.Aliases")
	defer span.End()

	result, err := c.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, aliasesQuery, map[string]any{
			"run_id":  runID,
			"user_id": userID,
		})
		if err != nil {
			return nil, err
		}

		seen := make(map[string]bool)
		for records.Next(ctx) {
			raw, ok := records.Record().Get("user_ids")
			if !ok {
				continue
			}
			list, ok := raw.([]any)
			if !ok {
				continue
			}
			for _, v := range list {
				if s, ok := v.(string); ok {
					seen[s] = true
				}
			}
		}
		if err := records.Err(); err != nil {
			return nil, err
		}

		aliases := make([]string, 0, len(seen))
		for id := range seen {
			aliases = append(aliases, id)
		}
		sort.Strings(aliases)
		return aliases, nil
	})
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Error("Failed to query aliases")
		return nil, fmt.Errorf("failed to query aliases: %w", err)
	}

	return result.([]string), nil
}
