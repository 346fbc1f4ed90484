package client

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"blog-service/internal/config"
	"blog-service/internal/util"
)

// s3API is the part of *s3.Client the object store calls.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Client stores uploaded images and returns their public URL.
type S3Client struct {
	api     s3API
	bucket  string
	baseURL string
	timeout time.Duration
}

func NewS3Client(ctx context.Context, cfg config.S3Config) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET_NAME is not set")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	c := newS3Client(s3.NewFromConfig(awsCfg, s3Opts...), cfg)
	util.Info("S3 client initialized",
		zap.String("bucket", cfg.Bucket),
		zap.String("region", cfg.Region),
		zap.String("base_url", c.baseURL))
	return c, nil
}

func newS3Client(api s3API, cfg config.S3Config) *S3Client {
	timeout := cfg.UploadTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &S3Client{
		api:     api,
		bucket:  cfg.Bucket,
		baseURL: publicBaseURL(cfg),
		timeout: timeout,
	}
}

func publicBaseURL(cfg config.S3Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimSuffix(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "" && cfg.UsePathStyle:
		return strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.amazonaws.com", cfg.Bucket)
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Put uploads body under prefix with a collision-free key and returns the
// object URL.
func (c *S3Client) Put(ctx context.Context, prefix, filename, contentType string, body io.Reader, size int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	name := unsafeKeyChars.ReplaceAllString(path.Base(filename), "_")
	key := path.Join(prefix, uuid.NewString()+"-"+name)

	in := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}

	if _, err := c.api.PutObject(ctx, in); err != nil {
		util.Error("Failed to upload object",
			zap.String("bucket", c.bucket),
			zap.String("key", key),
			zap.Error(err))
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	util.Debug("Object uploaded", zap.String("key", key), zap.Int64("size", size))
	return c.baseURL + "/" + key, nil
}

func (c *S3Client) HealthCheck(ctx context.Context) error {
	if _, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("s3 head bucket failed: %w", err)
	}
	return nil
}
