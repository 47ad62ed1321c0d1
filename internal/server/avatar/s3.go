package avatar

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"

	sc "github.com/dmitrijs2005/gophauth/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// S3Storage uploads avatars to <bucket>/avatars/<name> on an S3 compatible
// store (MinIO in development).
type S3Storage struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Storage builds a client from the S3 settings in cfg. When
// S3PublicURL is empty, objects are addressed path-style under the endpoint.
func NewS3Storage(ctx context.Context, cfg *sc.Config) (*S3Storage, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	publicURL := cfg.S3PublicURL
	if publicURL == "" {
		publicURL = strings.TrimRight(cfg.S3BaseEndpoint, "/") + "/" + cfg.S3Bucket
	}

	return &S3Storage{client: client, bucket: cfg.S3Bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Publish uploads srcPath and removes it once the object is stored.
func (s *S3Storage) Publish(ctx context.Context, srcPath, name string) (string, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", srcPath, err)
	}

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(srcPath); err == nil {
		contentType = mt.String()
	}

	key := Dir + "/" + name
	if _, err := putObject(s.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	}); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", srcPath, err)
	}
	if err := os.Remove(srcPath); err != nil {
		return "", fmt.Errorf("remove %s: %w", srcPath, err)
	}

	return s.publicURL + "/" + key, nil
}
