package client

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-service/internal/config"
)

type fakeS3 struct {
	put     *s3.PutObjectInput
	body    string
	putErr  error
	headErr error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.put = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func TestS3Put(t *testing.T) {
	api := &fakeS3{}
	c := newS3Client(api, config.S3Config{Bucket: "blog-media"})

	url, err := c.Put(context.Background(), "blog", "../my photo.png", "image/png", strings.NewReader("png-bytes"), 9)
	require.NoError(t, err)

	key := aws.ToString(api.put.Key)
	assert.True(t, strings.HasPrefix(key, "blog/"))
	assert.True(t, strings.HasSuffix(key, "-my_photo.png"))
	assert.Equal(t, "blog-media", aws.ToString(api.put.Bucket))
	assert.Equal(t, "image/png", aws.ToString(api.put.ContentType))
	assert.Equal(t, int64(9), aws.ToInt64(api.put.ContentLength))
	assert.Equal(t, "png-bytes", api.body)
	assert.Equal(t, "https://blog-media.s3.amazonaws.com/"+key, url)
}

func TestS3PutKeysAreUnique(t *testing.T) {
	api := &fakeS3{}
	c := newS3Client(api, config.S3Config{Bucket: "b"})

	a, err := c.Put(context.Background(), "profile", "me.jpg", "image/jpeg", strings.NewReader("x"), 1)
	require.NoError(t, err)
	b, err := c.Put(context.Background(), "profile", "me.jpg", "image/jpeg", strings.NewReader("x"), 1)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestS3PutError(t *testing.T) {
	c := newS3Client(&fakeS3{putErr: errors.New("access denied")}, config.S3Config{Bucket: "b"})

	_, err := c.Put(context.Background(), "blog", "a.png", "image/png", strings.NewReader("x"), 1)
	assert.Error(t, err)
}

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com", publicBaseURL(config.S3Config{Bucket: "b", PublicBaseURL: "https://cdn.example.com/"}))
	assert.Equal(t, "http://minio:9000/b", publicBaseURL(config.S3Config{Bucket: "b", Endpoint: "http://minio:9000", UsePathStyle: true}))
	assert.Equal(t, "https://b.s3.amazonaws.com", publicBaseURL(config.S3Config{Bucket: "b"}))
}

func TestS3HealthCheck(t *testing.T) {
	assert.NoError(t, newS3Client(&fakeS3{}, config.S3Config{Bucket: "b"}).HealthCheck(context.Background()))
	assert.Error(t, newS3Client(&fakeS3{headErr: errors.New("no such bucket")}, config.S3Config{Bucket: "b"}).HealthCheck(context.Background()))
}
