package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the subset of *s3.Client used here.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 stores images in a bucket under the "images/" prefix. References have
// the form "s3://<bucket>/images/<uuid>.<ext>".
type S3 struct {
	client s3API
	bucket string
}

func NewS3(ctx context.Context, accessKey, secretKey, region, bucket string) (*S3, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &S3{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (s *S3) prefix() string { return "s3://" + s.bucket + "/" }

func (s *S3) Save(ctx context.Context, contentType string, r io.Reader) (string, error) {
	name, err := newName(contentType)
	if err != nil {
		return "", err
	}
	key := "images/" + name
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return s.prefix() + key, nil
}

func (s *S3) Delete(ctx context.Context, ref string) error {
	if !strings.HasPrefix(ref, s.prefix()) {
		return fmt.Errorf("reference %q is not in bucket %s", ref, s.bucket)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(strings.TrimPrefix(ref, s.prefix())),
	})
	return err
}

var _ Files = (*S3)(nil)
