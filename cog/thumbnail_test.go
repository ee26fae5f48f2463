package cog

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func thumbnailCOG(t *testing.T, raster *fakeRaster) *COG {
	t.Helper()
	c, err := New("s3://grids/grid.tif", raster.bounds, time.Unix(0, 0),
		[2]float64{1, 1}, "EPSG:4326", "viridis",
		WithTransformerFactory(identityFactory),
		WithOpener(raster.opener()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return c
}

func gradientPixels(width, height int) []float64 {
	out := make([]float64, width*height)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func TestCreateThumbnail(t *testing.T) {
	raster := &fakeRaster{
		bounds:     [4]float64{0, 0, 8, 8},
		resX:       1, resY: 1,
		projection: "EPSG:4326",
		width:      8, height: 8,
		pixels:     [][]float64{gradientPixels(8, 8)},
	}
	c := thumbnailCOG(t, raster)

	path := filepath.Join(t.TempDir(), "thumbnail.png")
	if err := c.CreateThumbnail(context.Background(), path); err != nil {
		t.Fatalf("CreateThumbnail returned error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("thumbnail not written: %v", err)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("thumbnail is not a PNG: %v", err)
	}
	// default factor 4 on an 8x8 raster
	if got := img.Bounds().Dx(); got != 2 {
		t.Fatalf("expected width 2, got %d", got)
	}
	if got := img.Bounds().Dy(); got != 2 {
		t.Fatalf("expected height 2, got %d", got)
	}
	if _, err := os.Stat(path + ".part"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestCreateThumbnailCustomFactor(t *testing.T) {
	raster := &fakeRaster{
		bounds:     [4]float64{0, 0, 8, 8},
		resX:       1, resY: 1,
		projection: "EPSG:4326",
		width:      8, height: 8,
		pixels:     [][]float64{gradientPixels(8, 8)},
	}
	c := thumbnailCOG(t, raster)

	path := filepath.Join(t.TempDir(), "thumbnail.png")
	if err := c.CreateThumbnail(context.Background(), path, WithFactor(2)); err != nil {
		t.Fatalf("CreateThumbnail returned error: %v", err)
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("thumbnail not written: %v", err)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
		t.Fatalf("expected 4x4 thumbnail, got %v", img.Bounds())
	}
}

func TestCreateThumbnailFactorTooLarge(t *testing.T) {
	raster := &fakeRaster{
		bounds:     [4]float64{0, 0, 2, 2},
		resX:       1, resY: 1,
		projection: "EPSG:4326",
		width:      2, height: 2,
		pixels:     [][]float64{{1, 2, 3, 4}},
	}
	c := thumbnailCOG(t, raster)
	path := filepath.Join(t.TempDir(), "thumbnail.png")
	if err := c.CreateThumbnail(context.Background(), path, WithFactor(4)); err == nil {
		t.Fatal("expected error when factor exceeds raster size")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("no file should be written on failure: %v", err)
	}
}

func TestCreateThumbnailNoBands(t *testing.T) {
	raster := &fakeRaster{
		bounds:     [4]float64{0, 0, 8, 8},
		resX:       1, resY: 1,
		projection: "EPSG:4326",
		width:      8, height: 8,
	}
	c := thumbnailCOG(t, raster)
	if err := c.CreateThumbnail(context.Background(), filepath.Join(t.TempDir(), "t.png")); err != ErrNoBands {
		t.Fatalf("expected ErrNoBands, got %v", err)
	}
}
