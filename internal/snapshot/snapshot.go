// Package snapshot uploads motion-triggered frame captures to S3-compatible
// object storage.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotConfigured is returned by FromEnv when the object store environment
// variables are absent. Callers treat it as "snapshots disabled".
var ErrNotConfigured = errors.New("snapshot store not configured")

// Store saves encoded frame snapshots and returns a retrievable URL.
type Store interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// MinioStore is a Store backed by a MinIO (or any S3-compatible) bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	useSSL bool
}

// FromEnv builds a MinioStore from MINIO_* environment variables. It returns
// ErrNotConfigured when no credentials are present, and a hard error when
// they are present but the store is unreachable.
func FromEnv() (*MinioStore, error) {
	endpoint := getenv("MINIO_ENDPOINT", "localhost:9000")
	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")
	bucket := getenv("MINIO_BUCKET", "viewfinder-snapshots")
	useSSL := getenv("MINIO_USE_SSL", "false") == "true"

	if accessKey == "" || secretKey == "" {
		return nil, ErrNotConfigured
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Create the bucket if it does not exist yet.
	if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		exists, existsErr := cli.BucketExists(ctx, bucket)
		if existsErr != nil || !exists {
			return nil, fmt.Errorf("creating bucket %s: %w", bucket, err)
		}
	}

	log.Printf("Snapshot store connected: endpoint=%s bucket=%s", endpoint, bucket)

	return &MinioStore{client: cli, bucket: bucket, useSSL: useSSL}, nil
}

// Save uploads one encoded snapshot and returns its object URL.
func (s *MinioStore) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "image/jpeg"
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("uploading snapshot: %w", err)
	}

	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, s.bucket, key), nil
}

// Key builds a time-partitioned object key for a plugin's snapshot.
func Key(pluginName string, ts time.Time, seq uint64) string {
	return strings.Join([]string{
		pluginName,
		ts.UTC().Format("2006/01/02"),
		fmt.Sprintf("%s-%06d.jpg", ts.UTC().Format("150405"), seq),
	}, "/")
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
