package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"horus-go/internal/horus"
)

// s3API is the subset of the S3 client the provider uses.
type s3API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Config describes a bucket that mirrors the project tree under Prefix.
type S3Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
	// Static credentials; when empty the default AWS chain is used.
	AccessKeyID     string
	SecretAccessKey string
	Timeout         time.Duration
}

// S3Provider serves the project tree from an object store. Directories are
// key prefixes, so an empty directory does not exist.
type S3Provider struct {
	client   s3API
	uploader *manager.Uploader
	bucket   string
	prefix   string
	timeout  time.Duration
}

// NewS3Provider builds an S3 client from cfg and the ambient AWS config.
func NewS3Provider(cfg S3Config) (*S3Provider, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 provider requires a bucket")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Provider(client, cfg.Bucket, cfg.Prefix, cfg.Timeout), nil
}

func newS3Provider(client s3API, bucket, prefix string, timeout time.Duration) *S3Provider {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &S3Provider{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		timeout:  timeout,
	}
}

func (s *S3Provider) key(p string) string {
	return strings.TrimPrefix(path.Join(s.prefix, cleanPath(p)), "/")
}

// dirPrefix is the key prefix of everything inside directory p.
func (s *S3Provider) dirPrefix(p string) string {
	k := s.key(p)
	if k == "" {
		return ""
	}
	return k + "/"
}

func (s *S3Provider) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func mapS3Error(p string, err error) error {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return fmt.Errorf("%w: %s", horus.ErrNotFound, p)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", horus.ErrNotFound, p)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: %s", horus.ErrPermission, p)
		}
	}
	return fmt.Errorf("s3 request for %s: %w", p, err)
}

func (s *S3Provider) ListDirectory(p string) ([]horus.DirEntry, error) {
	ctx, cancel := s.requestContext()
	defer cancel()

	prefix := s.dirPrefix(p)
	pager := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var entries []horus.DirEntry
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, mapS3Error(p, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				entries = append(entries, horus.DirEntry{Name: name, IsDir: true})
			}
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name != "" {
				entries = append(entries, horus.DirEntry{Name: name})
			}
		}
	}

	if len(entries) == 0 && prefix != s.dirPrefix("") {
		return nil, fmt.Errorf("%w: directory %s", horus.ErrNotFound, p)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (s *S3Provider) FileExists(p string) (bool, error) {
	_, err := s.GetFileInfo(p)
	if errors.Is(err, horus.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *S3Provider) ReadFile(p string) ([]byte, error) {
	ctx, cancel := s.requestContext()
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		return nil, mapS3Error(p, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	return data, nil
}

func (s *S3Provider) WriteFile(p string, data []byte) error {
	ctx, cancel := s.requestContext()
	defer cancel()

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(p)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(p)),
	})
	if err != nil {
		return mapS3Error(p, err)
	}
	return nil
}

func contentType(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".json":
		return "application/json"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// GetFileInfo reports an object, or a directory when p is a prefix of
// other objects.
func (s *S3Provider) GetFileInfo(p string) (*horus.FileInfo, error) {
	ctx, cancel := s.requestContext()
	defer cancel()

	if s.key(p) == s.key("") {
		return &horus.FileInfo{IsDir: true}, nil
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err == nil {
		return &horus.FileInfo{
			Size:    aws.ToInt64(out.ContentLength),
			ModTime: aws.ToTime(out.LastModified),
		}, nil
	}
	if mapped := mapS3Error(p, err); !errors.Is(mapped, horus.ErrNotFound) {
		return nil, mapped
	}

	list, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.dirPrefix(p)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, mapS3Error(p, err)
	}
	if len(list.Contents) == 0 {
		return nil, fmt.Errorf("%w: %s", horus.ErrNotFound, p)
	}
	return &horus.FileInfo{IsDir: true}, nil
}

func (s *S3Provider) AbsolutePath(p string) string {
	return "s3://" + s.bucket + "/" + s.key(p)
}

// Probe checks that the bucket is reachable with the configured credentials.
func (s *S3Provider) Probe() error {
	ctx, cancel := s.requestContext()
	defer cancel()
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("%w: bucket %s: %v", horus.ErrConnection, s.bucket, err)
	}
	return nil
}

func (s *S3Provider) Close() error { return nil }

// Compile-time check that S3Provider implements horus.Provider
var _ horus.Provider = (*S3Provider)(nil)
