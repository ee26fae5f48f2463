package cog

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/airbusgeo/godal"
)

var (
	// ErrNoBands indicates a raster with no raster bands at all.
	ErrNoBands = errors.New("cog: raster has no bands")
	// ErrBandOutOfRange indicates a band index outside the raster.
	ErrBandOutOfRange = errors.New("cog: band index out of range")
	// ErrMissingProjection indicates a raster without a usable
	// coordinate reference system.
	ErrMissingProjection = errors.New("cog: raster has no projection")
)

// Raster is the subset of raster-dataset behavior the descriptor
// needs. The production implementation wraps a GDAL dataset; tests
// substitute an in-memory fake.
type Raster interface {
	// Bounds returns the native-projection bounding box as
	// [minx, miny, maxx, maxy].
	Bounds() ([4]float64, error)
	// Resolution returns the pixel size along x and y.
	Resolution() (x, y float64, err error)
	// Projection returns the coordinate reference system as an
	// authority code ("EPSG:26917") when known, otherwise WKT.
	Projection() (string, error)
	// TimestampTag returns the embedded capture timestamp, if any.
	TimestampTag() (time.Time, bool)
	// NoData returns the declared nodata value of band 1, if any.
	NoData() (float64, bool)
	// Size returns the raster dimensions in pixels.
	Size() (width, height int)
	// Bands returns the number of raster bands.
	Bands() int
	// ReadBand reads the 1-indexed band into a width×height grid,
	// resampling by averaging when the grid is smaller than the
	// native raster size.
	ReadBand(band, width, height int) ([]float64, error)
	Close() error
}

// Opener opens a raster by URI. The default opener goes through GDAL
// and understands s3:// paths once store.RegisterVSI has run.
type Opener func(uri string) (Raster, error)

// OpenRaster is the default Opener.
func OpenRaster(uri string) (Raster, error) {
	ds, err := godal.Open(uri)
	if err != nil {
		return nil, fmt.Errorf("cog: open %s: %w", uri, err)
	}
	return &gdalRaster{ds: ds}, nil
}

type gdalRaster struct {
	ds *godal.Dataset
}

func (r *gdalRaster) Bounds() ([4]float64, error) {
	bounds, err := r.ds.Bounds()
	if err != nil {
		return [4]float64{}, fmt.Errorf("cog: read bounds: %w", err)
	}
	return bounds, nil
}

func (r *gdalRaster) Resolution() (float64, float64, error) {
	gt, err := r.ds.GeoTransform()
	if err != nil {
		return 0, 0, fmt.Errorf("cog: read geotransform: %w", err)
	}
	return math.Abs(gt[1]), math.Abs(gt[5]), nil
}

func (r *gdalRaster) Projection() (string, error) {
	sr := r.ds.SpatialRef()
	if sr == nil {
		return "", ErrMissingProjection
	}
	if name, code := sr.AuthorityName(""), sr.AuthorityCode(""); name != "" && code != "" {
		return name + ":" + code, nil
	}
	wkt, err := sr.WKT()
	if err != nil || wkt == "" {
		return "", ErrMissingProjection
	}
	return wkt, nil
}

// tiffTimeLayouts covers the TIFF tag format plus the ISO variants
// some producers write instead.
var tiffTimeLayouts = []string{
	"2006:01:02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (r *gdalRaster) TimestampTag() (time.Time, bool) {
	return parseTimestampTag(r.ds.Metadata("TIFFTAG_DATETIME"))
}

func parseTimestampTag(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range tiffTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (r *gdalRaster) NoData() (float64, bool) {
	bands := r.ds.Bands()
	if len(bands) == 0 {
		return 0, false
	}
	return bands[0].NoData()
}

func (r *gdalRaster) Size() (int, int) {
	st := r.ds.Structure()
	return st.SizeX, st.SizeY
}

func (r *gdalRaster) Bands() int {
	return len(r.ds.Bands())
}

func (r *gdalRaster) ReadBand(band, width, height int) ([]float64, error) {
	bands := r.ds.Bands()
	if len(bands) == 0 {
		return nil, ErrNoBands
	}
	if band < 1 || band > len(bands) {
		return nil, fmt.Errorf("%w: %d of %d", ErrBandOutOfRange, band, len(bands))
	}
	srcW, srcH := r.Size()
	buf := make([]float64, width*height)
	var opts []godal.BandIOOption
	if width != srcW || height != srcH {
		opts = append(opts,
			godal.Window(srcW, srcH),
			godal.Resampling(godal.Average))
	}
	if err := bands[band-1].Read(0, 0, buf, width, height, opts...); err != nil {
		return nil, fmt.Errorf("cog: read band %d: %w", band, err)
	}
	return buf, nil
}

func (r *gdalRaster) Close() error {
	return r.ds.Close()
}
