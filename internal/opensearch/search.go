package opensearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// StatsQuery narrows a function-stats aggregation.
type StatsQuery struct {
	FunctionName string
	StartTime    time.Time
	EndTime      time.Time
}

// buildStatsQuery renders the aggregation body: per-function error rate,
// duration and memory statistics, and average health score.
func buildStatsQuery(q StatsQuery) map[string]interface{} {
	must := []interface{}{}

	if q.FunctionName != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"function_name": q.FunctionName},
		})
	}
	if !q.StartTime.IsZero() || !q.EndTime.IsZero() {
		timeRange := map[string]interface{}{}
		if !q.StartTime.IsZero() {
			timeRange["gte"] = q.StartTime.UTC().Format(time.RFC3339)
		}
		if !q.EndTime.IsZero() {
			timeRange["lte"] = q.EndTime.UTC().Format(time.RFC3339)
		}
		must = append(must, map[string]interface{}{
			"range": map[string]interface{}{"timestamp": timeRange},
		})
	}

	return map[string]interface{}{
		"size": 0,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
		"aggs": map[string]interface{}{
			"by_function": map[string]interface{}{
				"terms": map[string]interface{}{
					"field": "function_name",
					"size":  100,
				},
				"aggs": map[string]interface{}{
					"error_rate": map[string]interface{}{
						"filters": map[string]interface{}{
							"filters": map[string]interface{}{
								"errors": map[string]interface{}{
									"term": map[string]interface{}{"has_error": true},
								},
								"total": map[string]interface{}{
									"match_all": map[string]interface{}{},
								},
							},
						},
					},
					"duration_stats": map[string]interface{}{
						"stats": map[string]interface{}{"field": "duration"},
					},
					"memory_stats": map[string]interface{}{
						"stats": map[string]interface{}{"field": "memory_utilization"},
					},
					"health_score_avg": map[string]interface{}{
						"avg": map[string]interface{}{"field": "health_score"},
					},
				},
			},
		},
	}
}

// FunctionStats runs the per-function aggregation over every metric index
// and returns the raw search response.
func (c *Client) FunctionStats(ctx context.Context, query StatsQuery) (map[string]interface{}, error) {
	body, err := json.Marshal(buildStatsQuery(query))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats query: %w", err)
	}

	path := fmt.Sprintf("/%s-*/_search", indexPrefix)
	status, respBody, err := c.do(ctx, http.MethodPost, path, "application/json", body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		c.logger.Error("stats query rejected",
			"status", status,
			"response", string(respBody))
		return nil, fmt.Errorf("search returned status %d", status)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	return result, nil
}
