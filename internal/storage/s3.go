package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3BlobStore keeps payloads in an S3-compatible bucket (AWS S3, R2, MinIO).
// Objects are public-read; serving redirects to the resolved public URL.
type S3BlobStore struct {
	client     *s3.Client
	bucket     string
	prefix     string
	region     string
	endpoint   string
	publicBase string
}

var _ BlobStorage = (*S3BlobStore)(nil)

type S3Options struct {
	Client *s3.Client
	Bucket string
	// Prefix is an optional key prefix, e.g. "media".
	Prefix string
	// Region and Endpoint feed public URL construction when PublicBaseURL
	// is not set.
	Region   string
	Endpoint string
	// PublicBaseURL is a CDN or public bucket base; when set, public URLs
	// are PublicBaseURL/<key>.
	PublicBaseURL string
}

func NewS3BlobStore(opts S3Options) *S3BlobStore {
	return &S3BlobStore{
		client:     opts.Client,
		bucket:     opts.Bucket,
		prefix:     strings.Trim(opts.Prefix, "/"),
		region:     opts.Region,
		endpoint:   strings.TrimRight(opts.Endpoint, "/"),
		publicBase: strings.TrimRight(opts.PublicBaseURL, "/"),
	}
}

type S3ClientOptions struct {
	Region         string
	Endpoint       string
	ForcePathStyle bool
	AccessKeyID    string
	SecretKey      string
}

// NewS3Client builds an s3.Client for AWS or any S3-compatible endpoint.
// Credentials fall back to the ambient AWS chain when not set explicitly.
func NewS3Client(ctx context.Context, opts S3ClientOptions) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})
	return client, nil
}

func (s *S3BlobStore) objectKey(fileName string) string {
	if s.prefix != "" {
		return s.prefix + "/" + fileName
	}
	return fileName
}

func (s *S3BlobStore) Store(ctx context.Context, r io.Reader, fileName string, contentType string) (Locator, error) {
	// Stage to a temp file so the SDK gets a seekable body with a known length.
	tmpFile, err := os.CreateTemp("", "s3-upload-*")
	if err != nil {
		return Locator{}, fmt.Errorf("create tmp file: %w", err)
	}
	tmpName := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpName)
	}()

	n, err := io.Copy(tmpFile, r)
	if err != nil {
		return Locator{}, fmt.Errorf("write tmp payload: %w", err)
	}
	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		return Locator{}, fmt.Errorf("seek tmp file: %w", err)
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := s.objectKey(fileName)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          tmpFile,
		ContentLength: aws.Int64(n),
		ContentType:   aws.String(contentType),
		ACL:           types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return Locator{}, fmt.Errorf("s3 put %q: %w", key, err)
	}

	return Locator{Key: key, URL: s.publicURL(key)}, nil
}

func (s *S3BlobStore) Open(ctx context.Context, loc Locator) (*Blob, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		if isMissingObject(err) {
			return nil, fs.ErrNotExist
		}
		return nil, fmt.Errorf("s3 get %q: %w", loc.Key, err)
	}
	defer resp.Body.Close()

	tmpFile, err := os.CreateTemp("", "s3-read-*")
	if err != nil {
		return nil, fmt.Errorf("create tmp file: %w", err)
	}

	n, err := io.Copy(tmpFile, resp.Body)
	if err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return nil, fmt.Errorf("download s3 object: %w", err)
	}
	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return nil, fmt.Errorf("seek tmp file: %w", err)
	}

	return NewBlob(tmpFile, n), nil
}

func (s *S3BlobStore) Stat(ctx context.Context, loc Locator) (int64, error) {
	resp, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		if isMissingObject(err) {
			return 0, fs.ErrNotExist
		}
		return 0, fmt.Errorf("s3 head %q: %w", loc.Key, err)
	}
	return aws.ToInt64(resp.ContentLength), nil
}

func (s *S3BlobStore) Delete(ctx context.Context, loc Locator) error {
	// DeleteObject is idempotent: a missing key succeeds.
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %q: %w", loc.Key, err)
	}
	return nil
}

// publicURL mirrors the provider precedence used at upload time: explicit
// public base, then custom endpoint path-style, then the AWS virtual-hosted URL.
func (s *S3BlobStore) publicURL(key string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	if s.endpoint != "" {
		return s.endpoint + "/" + s.bucket + "/" + key
	}
	region := s.region
	if region == "" || region == "auto" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, region, key)
}

func isMissingObject(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
