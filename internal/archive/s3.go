package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Archiver keeps a copy of an uploaded supplement photo and returns its object key.
type Archiver interface {
	Archive(ctx context.Context, uid string, data []byte) (string, error)
}

// Config holds the bucket settings. An empty Bucket disables archiving.
type Config struct {
	Bucket string
	Region string
	Prefix string
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads photos to a private S3 bucket.
type S3Archiver struct {
	client objectPutter
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Archiver loads the default AWS credential chain for the configured region.
func NewS3Archiver(ctx context.Context, cfg Config) (*S3Archiver, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("archive bucket required")
	}
	opts := []func(*config.LoadOptions) error{}
	if region := strings.TrimSpace(cfg.Region); region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3Archiver(s3.NewFromConfig(awsCfg), bucket, cfg.Prefix), nil
}

func newS3Archiver(client objectPutter, bucket, prefix string) *S3Archiver {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "supplement-images"
	}
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// Archive stores data under <prefix>/<uid>/<yyyy-mm-dd>/<uuid><ext>.
func (a *S3Archiver) Archive(ctx context.Context, uid string, data []byte) (string, error) {
	contentType := http.DetectContentType(data)
	key := path.Join(a.prefix, sanitizeSegment(uid), a.now().UTC().Format("2006-01-02"), uuid.NewString()+extensionFor(contentType))

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}
	return key, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

func sanitizeSegment(value string) string {
	value = strings.TrimSpace(value)
	value = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, value)
	if value == "" || value == "." || value == ".." {
		return "_"
	}
	return value
}
