package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"lambda-fleet-monitor/internal/collector"
)

// S3Putter is the subset of the S3 API the snapshot store uses.
type S3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// SnapshotStore writes one fleet snapshot per collection cycle to S3 as
// date-partitioned JSON objects.
type SnapshotStore struct {
	client S3Putter
	bucket string
}

// NewSnapshotStore creates a snapshot store for the given bucket.
func NewSnapshotStore(client S3Putter, bucket string) *SnapshotStore {
	return &SnapshotStore{client: client, bucket: bucket}
}

// Store writes the snapshot and returns its object key.
func (s *SnapshotStore) Store(ctx context.Context, fleet collector.FleetMetrics) (string, error) {
	body, err := json.Marshal(fleet)
	if err != nil {
		return "", fmt.Errorf("failed to marshal fleet snapshot: %v", err)
	}

	key := fmt.Sprintf("snapshots/%s/fleet-%s.json",
		time.Now().UTC().Format("2006/01/02"), uuid.NewString())

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to write snapshot to s3://%s/%s: %v", s.bucket, key, err)
	}

	return key, nil
}
