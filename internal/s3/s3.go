package s3

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Capitan-Parrot/detect-people/internal/models"
)

type Client struct {
	client *minio.Client
	bucket string
}

func NewMinioClient(endpoint, accessKey, secretKey, bucket string) (*Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
		Region: "us-east-1",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Client{client: client, bucket: bucket}, nil
}

// EnsureBucket creates the report bucket when it is missing.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", c.bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", c.bucket, err)
	}
	return nil
}

// ReportKey is the object name of the report for one request.
func ReportKey(uniqueID string) string {
	return uniqueID + ".json"
}

// SaveDetectionReport stores the outcome with its detections as
// <bucket>/<uniqueId>.json.
func (c *Client) SaveDetectionReport(ctx context.Context, ev models.OutcomeEvent) error {
	if ev.Detections == nil {
		ev.Detections = []models.Detection{}
	}
	jsonData, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal detection report: %w", err)
	}

	_, err = c.client.PutObject(
		ctx,
		c.bucket,
		ReportKey(ev.UniqueID),
		bytes.NewReader(jsonData),
		int64(len(jsonData)),
		minio.PutObjectOptions{
			ContentType: "application/json",
		},
	)
	if err != nil {
		return fmt.Errorf("failed to save detection report to S3: %w", err)
	}

	return nil
}

// Record implements triage.Sink. Skipped requests have nothing to report.
func (c *Client) Record(ctx context.Context, ev models.OutcomeEvent) error {
	if ev.Outcome == models.OutcomeSkipped || ev.UniqueID == "" {
		return nil
	}
	return c.SaveDetectionReport(ctx, ev)
}
