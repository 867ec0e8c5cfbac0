// Package neo4j mirrors generated exploration graphs into a graph database
// for ad-hoc Cypher queries. The mirror is optional and best-effort; a
// failed write never surfaces to the API caller.
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/insights"
	"github.com/spacebio/backend/pkg/circuitbreaker"
	"github.com/spacebio/backend/pkg/logger"
	"github.com/spacebio/backend/pkg/retry"
)

type Client struct {
	driver      neo4j.DriverWithContext
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewClient(uri, username, password string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(username, password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx := context.Background()
	err = driver.VerifyConnectivity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	cb := circuitbreaker.NewCircuitBreaker("neo4j", circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          20 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Neo4j client initialized", zap.String("uri", uri))

	return &Client{
		driver:      driver,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) executeWithRetry(ctx context.Context, operation func(neo4j.SessionWithContext) error) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: "neo4j"})
			defer session.Close(ctx)
			return operation(session)
		})
	})
}

// MirrorGraph upserts a generated exploration graph. Nodes merge on id so
// repeated queries enrich the graph instead of duplicating it.
func (c *Client) MirrorGraph(ctx context.Context, graph *insights.Graph) error {
	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		for _, node := range graph.Nodes {
			query := `
				MERGE (n:GraphNode {id: $id})
				SET n.name = $name,
				    n.type = $type,
				    n.val = $val,
				    n.updated_at = timestamp()
			`
			_, err := session.Run(ctx, query, map[string]interface{}{
				"id":   node.ID,
				"name": node.Name,
				"type": node.Type,
				"val":  node.Val,
			})
			if err != nil {
				return fmt.Errorf("failed to merge node %s: %w", node.ID, err)
			}
		}

		for _, link := range graph.Links {
			query := `
				MATCH (s:GraphNode {id: $source})
				MATCH (t:GraphNode {id: $target})
				MERGE (s)-[r:LINKS]->(t)
				SET r.updated_at = timestamp()
			`
			_, err := session.Run(ctx, query, map[string]interface{}{
				"source": link.Source,
				"target": link.Target,
			})
			if err != nil {
				return fmt.Errorf("failed to merge link %s->%s: %w", link.Source, link.Target, err)
			}
		}

		return nil
	})

	if err != nil {
		return err
	}

	logger.Debug("Graph mirrored",
		zap.Int("nodes", len(graph.Nodes)),
		zap.Int("links", len(graph.Links)),
	)

	return nil
}

// NodeCount reports the mirrored node total, used by the readiness probe
// when the mirror is enabled.
func (c *Client) NodeCount(ctx context.Context) (int64, error) {
	var count int64

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		result, err := session.Run(ctx, "MATCH (n:GraphNode) RETURN count(n) AS count", nil)
		if err != nil {
			return fmt.Errorf("failed to count nodes: %w", err)
		}

		record, err := result.Single(ctx)
		if err != nil {
			return fmt.Errorf("failed to read count: %w", err)
		}

		val, _ := record.Get("count")
		count, _ = val.(int64)
		return nil
	})

	return count, err
}
