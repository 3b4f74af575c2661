package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dtroode/studyvault-server/internal/config"
	"github.com/dtroode/studyvault-server/internal/model"
)

// DefaultURLExpiry is the lifetime of presigned download URLs when none is configured.
const DefaultURLExpiry = time.Hour

// minioAPI is the subset of *minio.Client the blob store uses.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

var (
	_ minioAPI        = (*minio.Client)(nil)
	_ model.BlobStore = (*Client)(nil)
)

// Client stores document contents in a MinIO bucket. Storage pointers are object names.
type Client struct {
	api       minioAPI
	bucket    string
	urlExpiry time.Duration
}

// New dials MinIO with static credentials and makes sure the bucket exists.
func New(ctx context.Context, cfg config.Minio, urlExpiry time.Duration) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("minio endpoint is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return NewClientWithAPI(ctx, client, cfg.Bucket, urlExpiry)
}

// NewClientWithAPI allows injecting a mockable API (used in tests).
func NewClientWithAPI(ctx context.Context, api minioAPI, bucket string, urlExpiry time.Duration) (*Client, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("minio bucket is required")
	}
	if urlExpiry <= 0 {
		urlExpiry = DefaultURLExpiry
	}

	c := &Client{
		api:       api,
		bucket:    bucket,
		urlExpiry: urlExpiry,
	}

	if err := c.ensureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return c, nil
}

func (c *Client) ensureBucketExists(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Store uploads the contents under name. A negative size streams until EOF.
func (c *Client) Store(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error) {
	if size == 0 {
		size = -1
	}
	_, err := c.api.PutObject(ctx, c.bucket, name, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return name, nil
}

// PublicURL returns a presigned GET URL for the object.
func (c *Client) PublicURL(ctx context.Context, pointer string) (string, error) {
	exists, err := c.exists(ctx, pointer)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("object %s: %w", pointer, model.ErrNotFound)
	}

	u, err := c.api.PresignedGetObject(ctx, c.bucket, pointer, c.urlExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", err)
	}
	return u.String(), nil
}

// Delete removes the object. Removing a missing object succeeds.
func (c *Client) Delete(ctx context.Context, pointer string) error {
	err := c.api.RemoveObject(ctx, c.bucket, pointer, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (c *Client) exists(ctx context.Context, pointer string) (bool, error) {
	_, err := c.api.StatObject(ctx, c.bucket, pointer, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}
