// Package artifacts adapts an S3-compatible object store to the three
// buckets the forecast pipeline needs: uploaded datasets, serialized
// results, and generated exports. Grounded on the teacher's S3-compatible
// delivery adapter, generalized from one bucket to three and from a
// presigned-download helper to plain Put/Get/Delete.
package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/dairyforecast/herdsim/internal/forecasterr"
)

// Bucket names one of the three object-store buckets this domain uses.
type Bucket string

const (
	BucketDatasets Bucket = "datasets"
	BucketResults  Bucket = "results"
	BucketExports  Bucket = "exports"
)

// Store is the S3-compatible adapter for all three forecast buckets.
type Store struct {
	client  *s3.Client
	buckets map[Bucket]string
	logger  *zap.Logger
}

// Config names the concrete bucket for each logical role.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	DatasetsBucket  string
	ResultsBucket   string
	ExportsBucket   string
}

// NewStore builds an S3-compatible client, matching the teacher's
// path-style override for a non-AWS endpoint.
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load object store config: %w", err)
	}
	if cfg.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	return &Store{
		client: client,
		buckets: map[Bucket]string{
			BucketDatasets: cfg.DatasetsBucket,
			BucketResults:  cfg.ResultsBucket,
			BucketExports:  cfg.ExportsBucket,
		},
		logger: logger,
	}, nil
}

// DatasetKey is the object key for an uploaded dataset.
func DatasetKey(datasetID string) string { return fmt.Sprintf("datasets/%s.csv", datasetID) }

// ResultKey is the object key for a job's serialized forecast result.
func ResultKey(jobID string) string { return fmt.Sprintf("results/%s.json", jobID) }

// CSVExportKey is the object key for a job's CSV export.
func CSVExportKey(jobID string) string { return fmt.Sprintf("exports/%s.csv", jobID) }

// XLSXExportKey is the object key for a job's xlsx export.
func XLSXExportKey(jobID string) string { return fmt.Sprintf("exports/%s.xlsx", jobID) }

// Put uploads data to key within bucket.
func (s *Store) Put(ctx context.Context, bucket Bucket, key string, data []byte, contentType string) error {
	bucketName, ok := s.buckets[bucket]
	if !ok {
		return fmt.Errorf("put artifact: unknown bucket %q", bucket)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("put artifact %s/%s: %w", bucket, key, err)
	}
	s.logger.Info("uploaded artifact",
		zap.String("bucket", string(bucket)),
		zap.String("key", key),
		zap.Int("size_bytes", len(data)),
	)
	return nil
}

// Get downloads the object at key within bucket, returning
// forecasterr.DatasetObjectMissing when it is absent.
func (s *Store) Get(ctx context.Context, bucket Bucket, key string) ([]byte, error) {
	bucketName, ok := s.buckets[bucket]
	if !ok {
		return nil, fmt.Errorf("get artifact: unknown bucket %q", bucket)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, forecasterr.DatasetObjectMissing(key)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// Delete removes an object. It is best-effort: the caller decides whether
// a delete failure should surface as a per-id skip reason.
func (s *Store) Delete(ctx context.Context, bucket Bucket, key string) error {
	bucketName, ok := s.buckets[bucket]
	if !ok {
		return fmt.Errorf("delete artifact: unknown bucket %q", bucket)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete artifact %s/%s: %w", bucket, key, err)
	}
	return nil
}

// GenerateSignedURL presigns a GET URL for an object, used by result/export
// fetch handlers that redirect rather than stream the payload through the
// API process.
func (s *Store) GenerateSignedURL(ctx context.Context, bucket Bucket, key string, ttl time.Duration) (string, error) {
	bucketName, ok := s.buckets[bucket]
	if !ok {
		return "", fmt.Errorf("sign artifact: unknown bucket %q", bucket)
	}
	presigner := s3.NewPresignClient(s.client)
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("presign artifact %s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}
