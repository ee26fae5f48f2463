// Package store provides access to rasters held in S3-compatible
// object storage: path parsing, object metadata lookups, and file
// downloads.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidPath indicates a raster path that is not of the form
	// s3://bucket/key.
	ErrInvalidPath = errors.New("store: invalid s3 path")
	// ErrNoLastModified indicates the object exists but storage did not
	// report a last-modified timestamp for it.
	ErrNoLastModified = errors.New("store: object has no last-modified timestamp")
)

// API is the subset of the S3 client used by Store.
type API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// downloader matches the s3 transfer manager method used for
// downloads, so tests can substitute their own implementation.
type downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*manager.Downloader)) (int64, error)
}

// Store reads raster objects and their metadata from object storage.
type Store struct {
	client        API
	newDownloader func(API) downloader
}

// Option mutates the store when constructing it.
type Option func(*Store)

// New creates a Store on top of an existing S3 client.
func New(client API, opts ...Option) *Store {
	st := &Store{
		client: client,
		newDownloader: func(api API) downloader {
			return manager.NewDownloader(api)
		},
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// ClientConfig describes how to reach the object store.
type ClientConfig struct {
	Region    string
	Endpoint  string
	Anonymous bool
	AccessKey string
	SecretKey string
}

// NewClient builds an S3 client from the ambient AWS configuration,
// applying any overrides from cfg. Anonymous access is used for
// public buckets.
func NewClient(ctx context.Context, cfg ClientConfig) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("store: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		switch {
		case cfg.Anonymous:
			o.Credentials = aws.AnonymousCredentials{}
		case cfg.AccessKey != "":
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		}
	})
	return client, nil
}

// SplitPath splits an s3://bucket/key path into its bucket and key.
func SplitPath(path string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(path, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return bucket, key, nil
}

// URI formats a bucket and key as an s3:// path.
func URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

// LastModified reports the storage-side modification timestamp of an
// object, used as a capture-time fallback for rasters that carry no
// embedded timestamp tag.
func (s *Store) LastModified(ctx context.Context, bucket, key string) (time.Time, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("store: head s3://%s/%s: %w", bucket, key, err)
	}
	if out.LastModified == nil {
		return time.Time{}, fmt.Errorf("%w: s3://%s/%s", ErrNoLastModified, bucket, key)
	}
	return out.LastModified.UTC(), nil
}

// Download fetches an object to destPath, writing through a temporary
// .part file so a failed transfer never leaves a truncated result.
func (s *Store) Download(ctx context.Context, bucket, key, destPath string) (err error) {
	if destPath == "" {
		return errors.New("store: destination path required")
	}
	tmp := destPath + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	defer func() {
		file.Close()
		if err != nil {
			os.Remove(tmp)
		}
	}()

	dl := s.newDownloader(s.client)
	if _, err = dl.Download(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("store: download s3://%s/%s: %w", bucket, key, err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err = os.Rename(tmp, destPath); err != nil {
		return fmt.Errorf("store: rename temp file: %w", err)
	}
	return nil
}

// DownloadAll fetches the given keys into destDir using up to
// concurrency parallel transfers. Each key keeps its path structure
// under destDir, so keys sharing a filename cannot overwrite each
// other. Per-key failures are aggregated into a BatchError;
// successful keys are still written.
func (s *Store) DownloadAll(ctx context.Context, bucket string, keys []string, destDir string, concurrency int) error {
	if len(keys) == 0 {
		return errors.New("store: no keys supplied")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("store: create destination directory: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 2
	}

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, concurrency)
	errs := make([]error, len(keys))

	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			select {
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return nil
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			dest := filepath.Join(destDir, filepath.FromSlash(key))
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				errs[i] = fmt.Errorf("%s: %w", key, err)
				return nil
			}
			if err := s.Download(ctx, bucket, key, dest); err != nil {
				errs[i] = fmt.Errorf("%s: %w", key, err)
			}
			return nil
		})
	}
	g.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return BatchError{Errors: failed}
	}
	return nil
}

// BatchError aggregates multiple download errors.
type BatchError struct {
	Errors []error
}

// Error implements the error interface.
func (e BatchError) Error() string {
	messages := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		if err != nil {
			messages = append(messages, err.Error())
		}
	}
	return strings.Join(messages, "; ")
}
