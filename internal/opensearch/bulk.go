package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"lambda-fleet-monitor/internal/extract"
)

// indexPrefix is the date-partitioned index family for metric records.
const indexPrefix = "lambda-logs"

// bulkAction is the NDJSON action header preceding each document.
type bulkAction struct {
	Index struct {
		Index string `json:"_index"`
		ID    string `json:"_id"`
	} `json:"index"`
}

// IndexName returns the month-partitioned index for a point in time.
func IndexName(at time.Time) string {
	return fmt.Sprintf("%s-%s", indexPrefix, at.Format("2006-01"))
}

// BuildBulkBody renders records as NDJSON action+document pairs: one
// action header and one document per metric record.
func BuildBulkBody(records []extract.MetricRecord, at time.Time) ([]byte, error) {
	var buf bytes.Buffer
	index := IndexName(at)

	for _, record := range records {
		var action bulkAction
		action.Index.Index = index
		action.Index.ID = fmt.Sprintf("%s_%s", record.FunctionName, record.Timestamp)

		actionLine, err := json.Marshal(action)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal bulk action: %w", err)
		}
		docLine, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record %s: %w", action.Index.ID, err)
		}

		buf.Write(actionLine)
		buf.WriteByte('\n')
		buf.Write(docLine)
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

// bulkResponse is the subset of the _bulk response needed to detect
// item-level failures.
type bulkResponse struct {
	Errors bool `json:"errors"`
}

// BulkIndex ships the records to the domain in one _bulk call. The caller
// receives a definite success or error signal per batch; retries belong
// to the sink's operator, not to this client.
func (c *Client) BulkIndex(ctx context.Context, records []extract.MetricRecord) error {
	if len(records) == 0 {
		return nil
	}

	body, err := BuildBulkBody(records, time.Now().UTC())
	if err != nil {
		return err
	}

	status, respBody, err := c.do(ctx, http.MethodPost, "/_bulk", "application/x-ndjson", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		c.logger.Error("bulk indexing rejected",
			"status", status,
			"response", string(respBody))
		return fmt.Errorf("bulk request returned status %d", status)
	}

	var parsed bulkResponse
	if err := json.Unmarshal(respBody, &parsed); err == nil && parsed.Errors {
		c.logger.Error("bulk indexing reported item failures",
			"response", string(respBody))
		return fmt.Errorf("bulk request reported item-level errors")
	}

	c.logger.Info("shipped records to opensearch", "count", len(records))
	return nil
}
