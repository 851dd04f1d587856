package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client implements user.PhotoStore on top of any S3-compatible object
// store (MinIO, Cloudflare R2, AWS).
type Client struct {
	mc        *minio.Client
	bucket    string
	publicURL string
}

// New builds a Client from configuration. The endpoint accepts either
// "host:port" or a full "https://host" URL.
func New(endpoint, accessKeyID, secretAccessKey, bucket, publicURL string) (*Client, error) {
	host, secure, err := normalizeEndpoint(endpoint)
	if err != nil {
		return nil, fmt.Errorf("storage endpoint: %w", err)
	}
	mc, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &Client{
		mc:        mc,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

func normalizeEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}
	// Accept either "minio:9000" or "http://minio:9000" / "https://minio:9000".
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}
	return raw, false, nil
}

// objectKey derives a fresh storage key keeping the original extension.
func objectKey(filename string) string {
	return uuid.New().String() + strings.ToLower(filepath.Ext(filename))
}

// keyFromURL extracts the object key from a public URL.
func keyFromURL(fileURL string) string {
	if i := strings.LastIndex(fileURL, "/"); i >= 0 {
		return fileURL[i+1:]
	}
	return fileURL
}

// Upload stores the photo under a freshly generated key and returns
// its public URL.
func (c *Client) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	key := objectKey(filename)
	_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return c.publicURL + "/" + key, nil
}

// Delete removes the object a public URL points at. An empty URL is a
// no-op so callers can pass a nullable photo reference through.
func (c *Client) Delete(ctx context.Context, fileURL string) error {
	if fileURL == "" {
		return nil
	}
	key := keyFromURL(fileURL)
	if key == "" {
		return fmt.Errorf("unable to extract object key from %q", fileURL)
	}
	if err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}
