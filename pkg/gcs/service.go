package gcs

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// Client wraps a Cloud Storage client bound to one bucket.
type Client struct {
	client *storage.Client
	bucket string
}

func NewClient(ctx context.Context, bucket string) (*Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %v", err)
	}

	return &Client{
		client: client,
		bucket: bucket,
	}, nil
}

// Bucket returns the bucket this client writes to.
func (c *Client) Bucket() string {
	return c.bucket
}

// Upload writes content to the object path and returns the public URL.
func (c *Client) Upload(ctx context.Context, objectPath string, content io.Reader) (string, error) {
	obj := c.client.Bucket(c.bucket).Object(objectPath)

	writer := obj.NewWriter(ctx)
	if _, err := io.Copy(writer, content); err != nil {
		return "", fmt.Errorf("failed to copy content: %v", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %v", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucket, objectPath), nil
}

// Exists reports whether the object is present in the bucket.
func (c *Client) Exists(ctx context.Context, objectPath string) (bool, error) {
	_, err := c.client.Bucket(c.bucket).Object(objectPath).Attrs(ctx)
	if err == storage.ErrObjectNotExist {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat object: %v", err)
	}
	return true, nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (c *Client) Delete(ctx context.Context, objectPath string) error {
	err := c.client.Bucket(c.bucket).Object(objectPath).Delete(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return nil
		}
		return fmt.Errorf("failed to delete object: %v", err)
	}
	return nil
}

// SignedDownloadURL returns a V4 signed GET URL for the object.
func (c *Client) SignedDownloadURL(objectPath string, expiresAt time.Time) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: expiresAt,
	}

	url, err := c.client.Bucket(c.bucket).SignedURL(objectPath, opts)
	if err != nil {
		return "", fmt.Errorf("failed to sign url: %v", err)
	}
	return url, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
