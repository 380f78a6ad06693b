package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"fieldlog/api/internal/apperr"
	"fieldlog/api/internal/config"
	"fieldlog/api/internal/ids"
	"fieldlog/api/internal/media/sniffer"
)

var allowedMIMEs = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
}

// ObjectStore holds visit images in a single bucket and hands back public
// retrieval URLs.
type ObjectStore struct {
	client *minio.Client
	cfg    config.StorageConfig
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.Bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
		}
	}
	return nil
}

// Ping reports whether the bucket is reachable. Used by the health endpoint.
func (s *ObjectStore) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.cfg.Bucket); err != nil {
		return fmt.Errorf("bucket reachability %s: %w", s.cfg.Bucket, err)
	}
	return nil
}

// Put validates and stores an image payload, returning its public URL.
// Size and type gating happen before the upload is attempted, so a rejected
// payload never touches the backend. The object key is generated server-side;
// the client filename is never trusted.
func (s *ObjectStore) Put(ctx context.Context, data []byte, originalName string, contentType string) (string, error) {
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return "", apperr.Validation(fmt.Sprintf("image exceeds maximum size of %d bytes", s.cfg.MaxUploadBytes))
	}

	declared := sniffer.NormalizeMIME(contentType)
	ext, ok := allowedMIMEs[declared]
	if !ok {
		return "", apperr.Validation("image type must be jpeg, png, or gif")
	}

	detected, err := sniffer.Detect(data)
	if err != nil || detected.MIME != declared {
		return "", apperr.Validation("image content does not match its declared type")
	}

	key := fmt.Sprintf("visit-%d-%s.%s", time.Now().UnixMilli(), ids.New(), ext)

	_, err = s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: declared,
	})
	if err != nil {
		return "", apperr.Storage("image upload failed", err)
	}

	return s.publicURL(key), nil
}

// Delete removes the blob behind a previously issued URL. Callers treat
// failures as non-fatal; the error is returned only for logging.
func (s *ObjectStore) Delete(ctx context.Context, imageURL string) error {
	key, err := s.keyFromURL(imageURL)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// ListKeys returns every object key in the bucket older than cutoff.
// Used by the orphan sweep.
func (s *ObjectStore) ListKeys(ctx context.Context, cutoff time.Time) ([]string, error) {
	var keys []string
	for object := range s.client.ListObjects(ctx, s.cfg.Bucket, minio.ListObjectsOptions{}) {
		if object.Err != nil {
			return nil, fmt.Errorf("list objects: %w", object.Err)
		}
		if object.LastModified.Before(cutoff) {
			keys = append(keys, object.Key)
		}
	}
	return keys, nil
}

// URLForKey rebuilds the public URL for a raw object key.
func (s *ObjectStore) URLForKey(key string) string {
	return s.publicURL(key)
}

// DeleteKey removes an object by key, bypassing URL parsing.
func (s *ObjectStore) DeleteKey(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

func (s *ObjectStore) publicURL(key string) string {
	base := strings.TrimSuffix(s.cfg.Endpoint, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		scheme := "http"
		if s.cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + base
	}
	return fmt.Sprintf("%s/%s/%s", base, s.cfg.Bucket, key)
}

func (s *ObjectStore) keyFromURL(imageURL string) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("parse image url: %w", err)
	}
	prefix := "/" + s.cfg.Bucket + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		// Fall back to the last path segment for URLs from older deployments.
		return path.Base(u.Path), nil
	}
	return strings.TrimPrefix(u.Path, prefix), nil
}
