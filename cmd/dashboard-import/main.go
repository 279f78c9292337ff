package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

// Version information
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// importer pushes saved objects into an OpenSearch Dashboards instance
// using basic auth. Dashboards requires the osd-xsrf header on every
// mutating request.
type importer struct {
	endpoint string
	username string
	password string
	client   *http.Client
}

func main() {
	endpoint := flag.String("endpoint", "", "OpenSearch Dashboards endpoint URL (required)")
	username := flag.String("username", "", "Basic auth username (required)")
	password := flag.String("password", "", "Basic auth password (required)")
	dashboardFile := flag.String("dashboard-file", "dashboard.ndjson", "Saved objects export file to import")
	indexPattern := flag.String("index-pattern", "lambda-logs-*", "Index pattern to create before importing")
	timeout := flag.Duration("timeout", 60*time.Second, "HTTP request timeout")

	flag.Parse()

	if *endpoint == "" || *username == "" || *password == "" {
		fmt.Fprintf(os.Stderr, "endpoint, username and password are required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	log.Printf("Dashboard Import v%s (commit: %s, built: %s)", Version, GitCommit, BuildTime)

	imp := &importer{
		endpoint: *endpoint,
		username: *username,
		password: *password,
		client:   &http.Client{Timeout: *timeout},
	}

	ctx := context.Background()

	if err := imp.createIndexPattern(ctx, *indexPattern); err != nil {
		log.Fatalf("Failed to create index pattern: %v", err)
	}
	log.Printf("Index pattern %s is in place", *indexPattern)

	if err := imp.importSavedObjects(ctx, *dashboardFile); err != nil {
		log.Fatalf("Failed to import dashboard: %v", err)
	}
	log.Printf("Dashboard import from %s complete", *dashboardFile)
}

// createIndexPattern registers the index pattern the dashboards query
// against, keyed by the pattern string so the call is idempotent.
func (imp *importer) createIndexPattern(ctx context.Context, pattern string) error {
	body, err := json.Marshal(map[string]interface{}{
		"attributes": map[string]interface{}{
			"title":         pattern,
			"timeFieldName": "timestamp",
		},
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/_dashboards/api/saved_objects/index-pattern/%s?overwrite=true", imp.endpoint, pattern)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return imp.send(req)
}

// importSavedObjects uploads a saved-objects export file through the
// Dashboards import API, overwriting objects that already exist.
func (imp *importer) importSavedObjects(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read dashboard file %s: %v", path, err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "dashboard.ndjson")
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	url := fmt.Sprintf("%s/_dashboards/api/saved_objects/_import?overwrite=true", imp.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return imp.send(req)
}

func (imp *importer) send(req *http.Request) error {
	req.SetBasicAuth(imp.username, imp.password)
	req.Header.Set("osd-xsrf", "true")

	resp, err := imp.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s returned status %d: %s", req.Method, req.URL.Path, resp.StatusCode, string(body))
	}

	return nil
}
