package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"lambda-fleet-monitor/internal/collector"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestSnapshotStore(t *testing.T) {
	client := &fakeS3{}
	store := NewSnapshotStore(client, "fleet-snapshots")

	fleet := collector.FleetMetrics{
		CollectedAt: "2026-08-23T00:00:00Z",
		Accounts: map[string]collector.AccountBundle{
			"123456789012": {ErrorCount: 3, HealthScore: 80},
		},
	}

	key, err := store.Store(context.Background(), fleet)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if !strings.HasPrefix(key, "snapshots/") || !strings.HasSuffix(key, ".json") {
		t.Errorf("Unexpected snapshot key format: %s", key)
	}
	if aws.ToString(client.input.Bucket) != "fleet-snapshots" {
		t.Errorf("Expected bucket fleet-snapshots, got %s", aws.ToString(client.input.Bucket))
	}
	if aws.ToString(client.input.Key) != key {
		t.Errorf("Returned key %s does not match uploaded key %s", key, aws.ToString(client.input.Key))
	}

	body, err := io.ReadAll(client.input.Body)
	if err != nil {
		t.Fatalf("Failed to read uploaded body: %v", err)
	}
	var stored collector.FleetMetrics
	if err := json.Unmarshal(body, &stored); err != nil {
		t.Fatalf("Uploaded body is not valid JSON: %v", err)
	}
	if stored.Accounts["123456789012"].HealthScore != 80 {
		t.Errorf("Expected health score 80 in stored snapshot, got %v", stored.Accounts["123456789012"].HealthScore)
	}
}

func TestSnapshotStoreUploadFailure(t *testing.T) {
	client := &fakeS3{err: errors.New("access denied")}
	store := NewSnapshotStore(client, "fleet-snapshots")

	if _, err := store.Store(context.Background(), collector.FleetMetrics{}); err == nil {
		t.Error("Expected error when upload fails")
	}
}
