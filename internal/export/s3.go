package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Destination uploads run exports to an S3-compatible bucket, one object
// per export, tagged with the export's run and event counts.
type S3Destination struct {
	client *s3.Client
	bucket string
	logger *slog.Logger
}

// NewS3Destination creates an S3 destination. If endpoint is non-empty,
// path-style addressing is enabled (for MinIO and similar).
func NewS3Destination(ctx context.Context, bucket, region, endpoint string, logger *slog.Logger) (*S3Destination, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &S3Destination{
		client: s3.NewFromConfig(cfg, s3opts...),
		bucket: bucket,
		logger: logger,
	}, nil
}

// ObjectKey stamps the configured key with the export time so repeated
// exports to the same bucket never overwrite each other:
// "dqc/schedules.jsonl" becomes "dqc/schedules-20260829T101500Z.jsonl".
func ObjectKey(key string, at time.Time) string {
	ext := path.Ext(key)
	stem := strings.TrimSuffix(key, ext)
	return stem + "-" + at.UTC().Format("20060102T150405Z") + ext
}

// Put uploads one JSONL export under key. The summary from ExportRuns is
// recorded as object metadata so the ledger contents are visible from a
// bucket listing alone.
func (d *S3Destination) Put(ctx context.Context, key string, data []byte, sum Summary) error {
	contentType := "application/x-ndjson"
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
		Metadata: map[string]string{
			"dqc-run-count":   strconv.Itoa(sum.Runs),
			"dqc-event-count": strconv.Itoa(sum.Events),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	d.logger.Info("uploaded run export",
		"bucket", d.bucket, "key", key, "bytes", len(data),
		"runs", sum.Runs, "events", sum.Events)
	return nil
}
