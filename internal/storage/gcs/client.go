// Package gcs stores document contents in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/dtroode/studyvault-server/internal/config"
	"github.com/dtroode/studyvault-server/internal/model"
)

var _ model.BlobStore = (*Client)(nil)

// DefaultURLExpiry is the lifetime of signed download URLs when none is configured.
const DefaultURLExpiry = time.Hour

type Client struct {
	client    *storage.Client
	bucket    string
	projectID string
	urlExpiry time.Duration
	now       func() time.Time
}

// New constructs a GCS client from config and makes sure the bucket exists.
func New(ctx context.Context, cfg config.GCS, urlExpiry time.Duration) (*Client, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}
	if urlExpiry <= 0 {
		urlExpiry = DefaultURLExpiry
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	c := &Client{
		client:    client,
		bucket:    cfg.Bucket,
		projectID: cfg.ProjectID,
		urlExpiry: urlExpiry,
		now:       time.Now,
	}

	if err := c.ensureBucket(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return c, nil
}

func (c *Client) ensureBucket(ctx context.Context) error {
	_, err := c.client.Bucket(c.bucket).Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrBucketNotExist) {
		return err
	}
	if strings.TrimSpace(c.projectID) == "" {
		return errors.New("gcs project id is required to create bucket")
	}
	return c.client.Bucket(c.bucket).Create(ctx, c.projectID, nil)
}

// Store uploads the contents under name.
func (c *Client) Store(ctx context.Context, name string, reader io.Reader, _ int64, contentType string) (string, error) {
	writer := c.client.Bucket(c.bucket).Object(name).NewWriter(ctx)
	if strings.TrimSpace(contentType) != "" {
		writer.ContentType = contentType
	}
	if _, err := io.Copy(writer, reader); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return name, nil
}

// PublicURL returns a V4 signed GET URL for the object.
func (c *Client) PublicURL(ctx context.Context, pointer string) (string, error) {
	if _, err := c.client.Bucket(c.bucket).Object(pointer).Attrs(ctx); err != nil {
		return "", mapErr("stat object", pointer, err)
	}

	u, err := c.client.Bucket(c.bucket).SignedURL(pointer, signedGetOptions(c.now(), c.urlExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to sign object url: %w", err)
	}
	return u, nil
}

// Delete removes the object. Removing a missing object succeeds.
func (c *Client) Delete(ctx context.Context, pointer string) error {
	err := c.client.Bucket(c.bucket).Object(pointer).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	if err != nil {
		return mapErr("delete object", pointer, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func signedGetOptions(now time.Time, expiry time.Duration) *storage.SignedURLOptions {
	return &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: now.Add(expiry),
	}
}

func mapErr(op, pointer string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("object %s: %w", pointer, model.ErrNotFound)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
