// Package storage wraps the S3-compatible object store holding video
// thumbnails, previews and profile banners.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sougata-github/next-play/internal/config"
)

type Store struct {
	client    *minio.Client
	bucket    string
	publicURL string
	http      *http.Client
}

func New(cfg config.StorageConfig) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: connect: %w", err)
	}
	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		http:      &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
}

// Upload stores an object under a fresh key in the given prefix and returns
// the key and its public URL.
func (s *Store) Upload(ctx context.Context, prefix string, r io.Reader, size int64, contentType string) (key, url string, err error) {
	key = fmt.Sprintf("%s/%s", prefix, uuid.NewString())
	_, err = s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", "", fmt.Errorf("storage: put %s: %w", key, err)
	}
	return key, s.URL(key), nil
}

// UploadFromURL fetches a remote image and stores a copy. This is how the
// transcoding service's generated thumbnails and previews become ours.
func (s *Store) UploadFromURL(ctx context.Context, prefix, sourceURL string) (key, url string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("storage: fetch %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("storage: fetch %s returned %d", sourceURL, resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.Upload(ctx, prefix, resp.Body, resp.ContentLength, contentType)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// URL is the public address of a stored object.
func (s *Store) URL(key string) string {
	return s.publicURL + "/" + key
}
