// Package archive keeps a copy of every exported file in an S3 compatible
// bucket.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"jobfolio/web/internal/export"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOArchive implements export.Sink.
type MinIOArchive struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

// NewMinIOArchive connects to the endpoint and creates the bucket when it
// does not exist yet.
func NewMinIOArchive(ctx context.Context, cfg Config) (*MinIOArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &MinIOArchive{client: client, bucket: cfg.Bucket, now: time.Now}, nil
}

func (a *MinIOArchive) ExportCompleted(ctx context.Context, userID string, _ export.Document, res *export.Result) error {
	key := objectKey(userID, res.Filename, a.now())
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(res.Data), int64(len(res.Data)), minio.PutObjectOptions{
		ContentType: res.MimeType,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// objectKey lays artifacts out as <user>/<yyyy>/<mm>/<timestamp>-<filename>.
func objectKey(userID, filename string, at time.Time) string {
	if userID == "" {
		userID = "anonymous"
	}
	at = at.UTC()
	return path.Join(userID, at.Format("2006"), at.Format("01"), at.Format("20060102T150405Z")+"-"+filename)
}
