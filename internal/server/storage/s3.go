package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/simvex/simvex-server/internal/common"
	sc "github.com/simvex/simvex-server/internal/server/config"
)

// Object is the result of a Get: a byte stream plus the metadata needed to
// re-serve it over HTTP. The caller owns Body and must close it.
type Object struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// ObjectStore is the thin capability over a bucket used by the upload
// orchestrator. It performs no retries; retry policy, if any, belongs to the
// caller.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	// List returns the basename of every key under prefix. This projection
	// is lossy: models/x.glb and data/x.glb both come back as "x.glb".
	// Fine for a listing UI, unusable for deduplication.
	List(ctx context.Context, prefix string) ([]string, error)
}

// S3Store talks to the configured S3-compatible bucket (R2, MinIO). The
// underlying client is built once and is safe for concurrent use by any
// number of simultaneous uploads.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store builds the client from static credentials and the configured
// endpoint, the same way for R2 and for a local MinIO.
func NewS3Store(ctx context.Context, cfg *sc.Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("s3 config error: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Store{client: client, bucket: cfg.S3Bucket}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", common.ErrorUploadFailed, key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) (*Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, key)
		}
		return nil, fmt.Errorf("%w: get %s: %w", common.ErrorRetrievalFailed, key, err)
	}

	return &Object{
		Body:          out.Body,
		ContentType:   aws.ToString(out.ContentType),
		ContentLength: aws.ToInt64(out.ContentLength),
	}, nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", common.ErrorRetrievalFailed, prefix, err)
		}
		for _, obj := range page.Contents {
			names = append(names, baseName(aws.ToString(obj.Key)))
		}
	}

	return names, nil
}

func baseName(key string) string {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[idx+1:]
	}
	return key
}
