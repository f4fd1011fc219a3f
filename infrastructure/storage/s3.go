package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ahrav/go-concord/internal/ports"
)

const s3Backend = "s3"

// S3API is the subset of *s3.Client the store needs.
type S3API interface {
	s3.ListObjectsV2APIClient
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps summaries as objects under a key prefix in one bucket.
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

var _ ports.ResultStore = (*S3Store)(nil)

// NewS3Store creates a store. prefix is normalized to end in "/" when set.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// Ensure verifies the bucket exists and is accessible.
func (s *S3Store) Ensure(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return ports.NewStoreError(s3Backend, "ensure", s.bucket, err)
	}
	return nil
}

// Save uploads one summary.
func (s *S3Store) Save(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return ports.NewStoreError(s3Backend, "save", name, err)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return ports.NewStoreError(s3Backend, "save", name, err)
	}
	return nil
}

// List pages through the prefix and returns .json objects, newest first.
func (s *S3Store) List(ctx context.Context) ([]ports.StoredResult, error) {
	var out []ports.StoredResult
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, ports.NewStoreError(s3Backend, "list", "", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if ValidateName(name) != nil {
				continue
			}
			out = append(out, ports.StoredResult{Name: name, ModifiedAt: aws.ToTime(obj.LastModified)})
		}
	}
	if out == nil {
		out = []ports.StoredResult{}
	}
	sortNewestFirst(out)
	return out, nil
}

// Load downloads one summary.
func (s *S3Store) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, ports.NewStoreError(s3Backend, "load", name, err)
	}
	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + name),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ports.NewStoreError(s3Backend, "load", name, ports.ErrResultNotFound)
		}
		return nil, ports.NewStoreError(s3Backend, "load", name, err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, ports.NewStoreError(s3Backend, "load", name, err)
	}
	return data, nil
}
