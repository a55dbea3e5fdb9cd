package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gel-ops/exifstrip/pkg/errors"
)

// Client provides S3 blob store operations across the ingest and
// processed buckets.
type Client struct {
	s3Client *s3.Client
}

// NewClient creates a new S3 client using the default credential chain.
func NewClient(ctx context.Context, region string) (*Client, error) {
	slog.Info("s3_client_init", "region", region)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
	)
	if err != nil {
		slog.Error("aws_config_load_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return &Client{s3Client: s3.NewFromConfig(cfg)}, nil
}

// DownloadResult contains download metadata.
type DownloadResult struct {
	LocalPath string
	SHA256    string
	Size      int64
}

// Download downloads an object to a local path and computes its SHA256.
func (c *Client) Download(ctx context.Context, bucket, key, localPath string) (*DownloadResult, error) {
	slog.Info("s3_download_start", "bucket", bucket, "key", key)

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Error("s3_get_object_failed", "bucket", bucket, "key", key, "error", err)
		return nil, errors.WithKind(errors.KindTransport, errors.Wrap(err, "failed to get object from S3"))
	}
	defer result.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		slog.Error("local_file_creation_failed", "path", localPath, "error", err)
		return nil, errors.WithKind(errors.KindAccess, errors.Wrap(err, "failed to create local file"))
	}
	defer f.Close()

	hash := sha256.New()
	writer := io.MultiWriter(f, hash)

	size, err := io.Copy(writer, result.Body)
	if err != nil {
		slog.Error("s3_download_failed", "bucket", bucket, "key", key, "error", err)
		return nil, errors.WithKind(errors.KindTransport, errors.Wrap(err, "failed to download object"))
	}

	checksum := hex.EncodeToString(hash.Sum(nil))

	slog.Info("s3_download_complete",
		"bucket", bucket,
		"key", key,
		"size_bytes", size,
		"local_path", localPath,
		"sha256", checksum[:16]+"...",
	)

	return &DownloadResult{
		LocalPath: localPath,
		SHA256:    checksum,
		Size:      size,
	}, nil
}

// Upload uploads a local file to an object, encrypted with the given KMS key.
func (c *Client) Upload(ctx context.Context, bucket, key, localPath, kmsKeyARN string) error {
	slog.Info("s3_upload_start", "bucket", bucket, "key", key, "local_path", localPath)

	f, err := os.Open(localPath)
	if err != nil {
		slog.Error("local_file_open_failed", "path", localPath, "error", err)
		return errors.WithKind(errors.KindAccess, errors.Wrap(err, "failed to open local file"))
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if kmsKeyARN != "" {
		input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(kmsKeyARN)
	}

	if _, err := c.s3Client.PutObject(ctx, input); err != nil {
		slog.Error("s3_put_object_failed", "bucket", bucket, "key", key, "error", err)
		return errors.WithKind(errors.KindTransport, errors.Wrap(err, "failed to upload object"))
	}

	slog.Info("s3_upload_complete", "bucket", bucket, "key", key)
	return nil
}

// Delete removes an object from a bucket.
func (c *Client) Delete(ctx context.Context, bucket, key string) error {
	slog.Info("s3_delete_start", "bucket", bucket, "key", key)

	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Error("s3_delete_object_failed", "bucket", bucket, "key", key, "error", err)
		return errors.WithKind(errors.KindTransport, errors.Wrap(err, "failed to delete object"))
	}

	slog.Info("s3_delete_complete", "bucket", bucket, "key", key)
	return nil
}

// BucketExists verifies that a bucket exists and is accessible.
func (c *Client) BucketExists(ctx context.Context, bucket string) error {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		slog.Error("s3_head_bucket_failed", "bucket", bucket, "error", err)
		return errors.WithKind(errors.KindTransport, errors.Wrap(err, "failed to check bucket existence"))
	}

	slog.Info("s3_bucket_exists", "bucket", bucket)
	return nil
}
