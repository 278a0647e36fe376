package corpus

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/config"
)

const listContentType = "text/tab-separated-values; charset=utf-8"

// ObjectSink uploads list files to an S3-compatible bucket.
type ObjectSink struct {
	client *minio.Client
	bucket string
	prefix string
	sep    string
	logger *slog.Logger
}

// NewObjectSink connects to the object store and creates the bucket if it
// does not exist yet.
func NewObjectSink(ctx context.Context, cfg config.ObjectStoreConfig, sep string) (*ObjectSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", cfg.Bucket, err)
		}
	}
	if sep == "" {
		sep = "\t"
	}
	return &ObjectSink{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		sep:    sep,
		logger: slog.Default().With("component", "object-sink", "bucket", cfg.Bucket),
	}, nil
}

// Key is the object key of a category's list.
func (s *ObjectSink) Key(category string, resolution int) string {
	return path.Join(s.prefix, FileName(category, resolution))
}

func (s *ObjectSink) Write(ctx context.Context, listing Listing) error {
	data := Encode(listing.List, s.sep)
	key := s.Key(listing.Category, listing.Resolution)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: listContentType,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	s.logger.Debug("list uploaded", "key", key, "size", len(data))
	return nil
}
