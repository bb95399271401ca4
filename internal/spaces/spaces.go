// Package spaces uploads generated reports to an S3-compatible object store
// (DigitalOcean Spaces in production).
package spaces

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const keyPrefix = "impact-reports"

// Config carries the Spaces connection settings.
type Config struct {
	Endpoint  string // host only, e.g. nyc3.digitaloceanspaces.com
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	CDNDomain string // optional public CDN base, no trailing slash
}

// UploadResult identifies an uploaded object.
type UploadResult struct {
	URL string
	Key string
}

// Client wraps a minio client bound to one bucket.
type Client struct {
	s3     *minio.Client
	bucket string
	public string
}

// New validates cfg and builds a Client. Missing settings are a
// configuration error surfaced here, once, rather than on every upload.
func New(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://"))
	if endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("spaces configuration incomplete: endpoint, bucket, access key, and secret key are required")
	}
	if !strings.Contains(endpoint, ".") {
		return nil, fmt.Errorf("spaces endpoint %q should be a bare host like nyc3.digitaloceanspaces.com", endpoint)
	}

	s3, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: true,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("build spaces client: %w", err)
	}

	public := strings.TrimRight(cfg.CDNDomain, "/")
	if public == "" {
		public = fmt.Sprintf("https://%s.%s", cfg.Bucket, endpoint)
	}

	return &Client{s3: s3, bucket: cfg.Bucket, public: public}, nil
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// Upload stores data under a timestamped key and returns its public URL.
// Objects are individually public-read; the bucket itself stays private.
func (c *Client) Upload(ctx context.Context, data []byte, fileName, contentType string) (UploadResult, error) {
	key := fmt.Sprintf("%s/%d-%s", keyPrefix, time.Now().UnixMilli(), unsafeKeyChars.ReplaceAllString(fileName, "_"))

	_, err := c.s3.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"x-amz-acl": "public-read"},
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload %s: %w", key, err)
	}

	return UploadResult{URL: c.public + "/" + key, Key: key}, nil
}
