// Package opensearch ships metric records to an OpenSearch domain over
// SigV4-signed HTTP and runs aggregation queries against the metric
// indices.
package opensearch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

// serviceName is the SigV4 service name for OpenSearch domains.
const serviceName = "es"

// Client is a minimal OpenSearch data-plane client. The wire protocol is
// plain REST; requests are signed with the caller's AWS credentials.
type Client struct {
	endpoint    string
	region      string
	credentials aws.CredentialsProvider
	signer      *v4.Signer
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a client for one domain endpoint. The endpoint may be
// a bare host (https is assumed) or a full URL. A nil httpClient falls
// back to a client with a 30 second timeout.
func NewClient(endpoint, region string, credentials aws.CredentialsProvider, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		endpoint:    endpoint,
		region:      region,
		credentials: credentials,
		signer:      v4.NewSigner(),
		httpClient:  httpClient,
		logger:      logger,
	}
}

// baseURL normalizes the configured endpoint to a URL prefix.
func (c *Client) baseURL() string {
	if strings.HasPrefix(c.endpoint, "http://") || strings.HasPrefix(c.endpoint, "https://") {
		return strings.TrimSuffix(c.endpoint, "/")
	}
	return "https://" + strings.TrimSuffix(c.endpoint, "/")
}

// do signs and executes one request and returns the response body along
// with the status code. Non-2xx responses are returned to the caller for
// policy decisions, not swallowed here.
func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL()+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	creds, err := c.credentials.Retrieve(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to retrieve credentials: %w", err)
	}

	payloadHash := sha256.Sum256(body)
	if err := c.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(payloadHash[:]), serviceName, c.region, time.Now()); err != nil {
		return 0, nil, fmt.Errorf("failed to sign request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
