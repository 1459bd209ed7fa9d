package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"logstore-go/internal/logstore"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	manager.UploadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store is a logstore.RemoteStore on top of an S3 bucket. Locations have
// the form s3://<bucket>/<key>. S3 has no real collections, so a collection
// is represented by a zero-byte "<key>/" marker object and is considered to
// exist when the marker or any object below it exists.
type S3Store struct {
	client   S3API
	uploader *manager.Uploader
}

// NewS3Store wraps an S3 client.
func NewS3Store(client S3API) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

// S3Options configures the client built by NewS3Client.
type S3Options struct {
	Region          string
	Endpoint        string // optional, for S3-compatible services; implies path-style addressing
	AccessKeyID     string // optional, default credential chain when empty
	SecretAccessKey string
}

// NewS3Client loads the AWS configuration and builds an S3 client.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// ParseS3Location splits s3://bucket/key into bucket and key.
func ParseS3Location(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("parsing s3 location %q: %w", location, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid s3 location %q: want s3://bucket/key", location)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}

func isS3NotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}

// Exists reports whether an object or collection marker exists at absPath.
func (s *S3Store) Exists(ctx context.Context, absPath string) (bool, error) {
	bucket, key, err := ParseS3Location(absPath)
	if err != nil {
		return false, err
	}
	if key == "" {
		return true, nil
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if !isS3NotFound(err) {
		return false, fmt.Errorf("head %s: %w", absPath, err)
	}

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(key + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("list %s: %w", absPath, err)
	}
	return len(out.Contents) > 0, nil
}

// Put uploads r to absPath. Large streams are uploaded in parts.
func (s *S3Store) Put(ctx context.Context, absPath string, r io.Reader, size int64) error {
	bucket, key, err := ParseS3Location(absPath)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("put %s: empty object key", absPath)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("put %s: %w", absPath, err)
	}
	return nil
}

// Get opens the object at absPath for reading.
func (s *S3Store) Get(ctx context.Context, absPath string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3Location(absPath)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("get %s: %w", absPath, logstore.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", absPath, err)
	}
	return out.Body, nil
}

// CreateCollection writes the "<key>/" marker object for absPath.
func (s *S3Store) CreateCollection(ctx context.Context, absPath string) error {
	bucket, key, err := ParseS3Location(absPath)
	if err != nil {
		return err
	}
	if key == "" {
		return nil
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key + "/"),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return fmt.Errorf("mkcol %s: %w", absPath, err)
	}
	return nil
}

// Compile-time check that S3Store implements logstore.RemoteStore
var _ logstore.RemoteStore = (*S3Store)(nil)
