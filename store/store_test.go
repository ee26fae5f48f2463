package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type mockS3 struct {
	lastModified *time.Time
	headErr      error
	objects      map[string][]byte
}

func (m *mockS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if m.headErr != nil {
		return nil, m.headErr
	}
	return &s3.HeadObjectOutput{LastModified: m.lastModified}, nil
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, fmt.Errorf("no such key %s", aws.ToString(params.Key))
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(string(data))),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

type mockDownloader struct {
	api API

	mu    sync.Mutex
	input *s3.GetObjectInput
}

func (m *mockDownloader) Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, _ ...func(*manager.Downloader)) (int64, error) {
	copied := *input
	m.mu.Lock()
	m.input = &copied
	m.mu.Unlock()
	out, err := m.api.GetObject(ctx, input)
	if err != nil {
		return 0, err
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return 0, err
	}
	if _, err := w.WriteAt(data, 0); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func newTestStore(mock *mockS3) (*Store, *mockDownloader) {
	dl := &mockDownloader{}
	st := New(mock)
	st.newDownloader = func(api API) downloader {
		dl.api = api
		return dl
	}
	return st, dl
}

func TestSplitPath(t *testing.T) {
	bucket, key, err := SplitPath("s3://grids/kanawha/grid.tif")
	if err != nil {
		t.Fatalf("SplitPath returned error: %v", err)
	}
	if bucket != "grids" || key != "kanawha/grid.tif" {
		t.Fatalf("unexpected split: %q %q", bucket, key)
	}
	if got := URI(bucket, key); got != "s3://grids/kanawha/grid.tif" {
		t.Fatalf("URI did not round-trip: %s", got)
	}
}

func TestSplitPathInvalid(t *testing.T) {
	for _, path := range []string{"", "grids/grid.tif", "https://grids/grid.tif", "s3://grids", "s3://grids/", "s3:///grid.tif"} {
		if _, _, err := SplitPath(path); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("expected ErrInvalidPath for %q, got %v", path, err)
		}
	}
}

func TestLastModified(t *testing.T) {
	modified := time.Date(2023, 11, 4, 12, 30, 0, 0, time.UTC)
	st, _ := newTestStore(&mockS3{lastModified: &modified})
	got, err := st.LastModified(context.Background(), "grids", "grid.tif")
	if err != nil {
		t.Fatalf("LastModified returned error: %v", err)
	}
	if !got.Equal(modified) {
		t.Fatalf("unexpected timestamp: %s", got)
	}
}

func TestLastModifiedMissing(t *testing.T) {
	st, _ := newTestStore(&mockS3{})
	if _, err := st.LastModified(context.Background(), "grids", "grid.tif"); !errors.Is(err, ErrNoLastModified) {
		t.Fatalf("expected ErrNoLastModified, got %v", err)
	}
}

func TestLastModifiedHeadError(t *testing.T) {
	st, _ := newTestStore(&mockS3{headErr: errors.New("forbidden")})
	if _, err := st.LastModified(context.Background(), "grids", "grid.tif"); err == nil {
		t.Fatal("expected error from HeadObject failure")
	}
}

func TestDownload(t *testing.T) {
	st, dl := newTestStore(&mockS3{objects: map[string][]byte{"grid.tif": []byte("raster-bytes")}})
	dest := filepath.Join(t.TempDir(), "grid.tif")
	if err := st.Download(context.Background(), "grids", "grid.tif", dest); err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "raster-bytes" {
		t.Fatalf("unexpected contents: %q", data)
	}
	if got := aws.ToString(dl.input.Bucket); got != "grids" {
		t.Fatalf("unexpected bucket: %s", got)
	}
	if _, err := os.Stat(dest + ".part"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestDownloadFailureRemovesPartFile(t *testing.T) {
	st, _ := newTestStore(&mockS3{objects: map[string][]byte{}})
	dest := filepath.Join(t.TempDir(), "grid.tif")
	if err := st.Download(context.Background(), "grids", "grid.tif", dest); err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, err := os.Stat(dest + ".part"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("destination should not exist: %v", err)
	}
}

func TestDownloadAllAggregatesErrors(t *testing.T) {
	st, _ := newTestStore(&mockS3{objects: map[string][]byte{
		"a/grid.tif": []byte("a"),
	}})
	dir := t.TempDir()
	err := st.DownloadAll(context.Background(), "grids", []string{"a/grid.tif", "b/grid.tif"}, dir, 2)
	if err == nil {
		t.Fatal("expected error from DownloadAll")
	}
	var batch BatchError
	if !errors.As(err, &batch) {
		t.Fatalf("expected BatchError, got %T", err)
	}
	if len(batch.Errors) != 1 {
		t.Fatalf("expected single error, got %d", len(batch.Errors))
	}
	if _, err := os.Stat(filepath.Join(dir, "a", "grid.tif")); err != nil {
		t.Fatalf("expected successful key to be written: %v", err)
	}
}

func TestDownloadAllKeepsKeyPaths(t *testing.T) {
	st, _ := newTestStore(&mockS3{objects: map[string][]byte{
		"a/grid.tif": []byte("raster-a"),
		"b/grid.tif": []byte("raster-b"),
	}})
	dir := t.TempDir()
	if err := st.DownloadAll(context.Background(), "grids", []string{"a/grid.tif", "b/grid.tif"}, dir, 2); err != nil {
		t.Fatalf("DownloadAll returned error: %v", err)
	}
	for key, want := range map[string]string{
		"a/grid.tif": "raster-a",
		"b/grid.tif": "raster-b",
	} {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
		if err != nil {
			t.Fatalf("ReadFile %s: %v", key, err)
		}
		if string(data) != want {
			t.Fatalf("key %s holds %q, want %q", key, data, want)
		}
	}
}
