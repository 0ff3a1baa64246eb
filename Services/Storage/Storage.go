package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	blake3 "lukechampine.com/blake3"
)

// Config holds the credentials and location of the S3-compatible bucket
// (Cloudflare R2 in production).
type Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
	PublicURL string
}

// MediaStore uploads staged files to the external media bucket.
type MediaStore struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func New(ctx context.Context, cfg Config) (*MediaStore, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" || cfg.Region == "" || cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage: missing required media store configuration")
	}

	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = endpoint + "/" + cfg.Bucket
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &MediaStore{client: client, bucket: cfg.Bucket, publicURL: publicURL}, nil
}

// ObjectKey derives a collision-free object key under the given prefix for a
// file owned by uid.
func ObjectKey(prefix, uid, ext string) string {
	sum := blake3.Sum256([]byte(uid + time.Now().Format(time.RFC3339Nano) + uuid.New().String()))
	return fmt.Sprintf("%s/%x%s", prefix, sum, ext)
}

// Upload puts a staged local file into the bucket and returns its public URL.
// The staged file is removed regardless of the upload outcome.
func (m *MediaStore) Upload(ctx context.Context, localPath, key, contentType string) (string, error) {
	defer os.Remove(localPath)

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("storage: failed to open staged file: %w", err)
	}
	defer file.Close()

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("storage: failed to upload %s: %w", key, err)
	}

	return m.publicURL + "/" + key, nil
}

// Delete removes an object by key. Used on video deletion; a failure here is
// logged by the caller but does not fail the request.
func (m *MediaStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("storage: object key cannot be empty")
	}
	_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: failed to delete %s: %w", key, err)
	}
	return nil
}

// KeyFromURL recovers the object key from a stored public URL. Returns an
// empty string when the URL does not belong to this store.
func (m *MediaStore) KeyFromURL(url string) string {
	prefix := m.publicURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}
