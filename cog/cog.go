// Package cog describes Cloud-Optimized GeoTIFF rasters held in
// object storage: native and geographic bounding boxes, capture
// timestamp, projection, a derived footprint polygon, and a
// down-sampled thumbnail rendering.
package cog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"

	"github.com/frd-data/cogstac/crs"
)

// ErrNoNoData is returned by AllCellsDry when the raster does not
// declare a nodata value, making the dryness test meaningless.
var ErrNoNoData = errors.New("cog: raster declares no nodata value")

// ObjectStore provides the object-storage metadata the remote-file
// constructor needs. *store.Store satisfies it.
type ObjectStore interface {
	LastModified(ctx context.Context, bucket, key string) (time.Time, error)
}

// COG describes a single Cloud-Optimized GeoTIFF. It is immutable
// after construction; the geographic footprint is derived from the
// native bounding box exactly once, at construction time.
type COG struct {
	uri        string
	bounds     [4]float64
	timestamp  time.Time
	resolution [2]float64
	projection string
	colorMap   string
	footprint  orb.Polygon

	clock          func() time.Time
	newTransformer crs.Factory
	open           Opener
}

// Option mutates a descriptor while it is being constructed.
type Option func(*COG)

// WithClock injects the time source used when no capture timestamp is
// available. Defaults to time.Now.
func WithClock(clock func() time.Time) Option {
	return func(c *COG) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithTransformerFactory overrides how coordinate transformers are
// created. Intended for tests.
func WithTransformerFactory(factory crs.Factory) Option {
	return func(c *COG) {
		if factory != nil {
			c.newTransformer = factory
		}
	}
}

// WithOpener overrides how the raster behind the descriptor's URI is
// opened. Intended for tests.
func WithOpener(open Opener) Option {
	return func(c *COG) {
		if open != nil {
			c.open = open
		}
	}
}

// New constructs a descriptor from already-known georeferencing
// metadata. Bounds are [minx, miny, maxx, maxy] in the native
// projection; resolution is the pixel size pair. A zero timestamp is
// replaced with the current clock time. The geographic footprint is
// computed immediately; an unrecognized projection fails construction.
func New(uri string, bounds [4]float64, timestamp time.Time, resolution [2]float64, projection, colorMap string, opts ...Option) (*COG, error) {
	c := &COG{
		uri:            uri,
		bounds:         bounds,
		timestamp:      timestamp,
		resolution:     resolution,
		projection:     projection,
		colorMap:       colorMap,
		clock:          time.Now,
		newTransformer: crs.NewTransformer,
		open:           OpenRaster,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timestamp.IsZero() {
		c.timestamp = c.clock()
	}
	c.timestamp = c.timestamp.UTC()

	geo, err := c.GeographicBounds()
	if err != nil {
		return nil, err
	}
	c.footprint = footprintPolygon(geo)
	return c, nil
}

// FromS3 opens a remote raster and constructs a descriptor from its
// georeferencing metadata. The capture timestamp comes from the
// raster's embedded timestamp tag, falling back to the object's
// storage-reported last-modified time when no tag is present.
func FromS3(ctx context.Context, objects ObjectStore, bucket, key, colorMap string, opts ...Option) (*COG, error) {
	// Build a throwaway descriptor so option-provided seams apply to
	// the open as well.
	seams := &COG{open: OpenRaster, clock: time.Now, newTransformer: crs.NewTransformer}
	for _, opt := range opts {
		opt(seams)
	}

	uri := fmt.Sprintf("s3://%s/%s", bucket, key)
	r, err := seams.open(uri)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	bounds, err := r.Bounds()
	if err != nil {
		return nil, err
	}
	projection, err := r.Projection()
	if err != nil {
		return nil, err
	}
	resX, resY, err := r.Resolution()
	if err != nil {
		return nil, err
	}
	timestamp, ok := r.TimestampTag()
	if !ok {
		timestamp, err = objects.LastModified(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
	}
	return New(uri, bounds, timestamp, [2]float64{resX, resY}, projection, colorMap, opts...)
}

// URI returns the raster's object-storage path.
func (c *COG) URI() string { return c.uri }

// Bounds returns the bounding box in the native projection.
func (c *COG) Bounds() [4]float64 { return c.bounds }

// Timestamp returns the capture timestamp.
func (c *COG) Timestamp() time.Time { return c.timestamp }

// Resolution returns the x/y pixel size pair.
func (c *COG) Resolution() [2]float64 { return c.resolution }

// Projection returns the native coordinate reference system string.
func (c *COG) Projection() string { return c.projection }

// ColorMap returns the display color map name.
func (c *COG) ColorMap() string { return c.colorMap }

// Footprint returns a copy of the cached geographic footprint.
func (c *COG) Footprint() orb.Polygon {
	return c.footprint.Clone()
}

// GeographicBounds reprojects the two native bounding-box corners to
// geographic longitude/latitude and returns the transformed min pair
// followed by the transformed max pair. It is recomputed on every
// call and has no side effects.
func (c *COG) GeographicBounds() ([4]float64, error) {
	tr, err := c.newTransformer(c.projection, crs.WGS84)
	if err != nil {
		return [4]float64{}, err
	}
	minX, minY, err := tr.Transform(c.bounds[0], c.bounds[1])
	if err != nil {
		return [4]float64{}, err
	}
	maxX, maxY, err := tr.Transform(c.bounds[2], c.bounds[3])
	if err != nil {
		return [4]float64{}, err
	}
	return [4]float64{minX, minY, maxX, maxY}, nil
}

// footprintPolygon builds the rectangle implied by geographic bounds,
// vertices ordered (minx,miny), (minx,maxy), (maxx,maxy), (maxx,miny)
// with the ring closed.
func footprintPolygon(b [4]float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{b[0], b[1]},
		{b[0], b[3]},
		{b[2], b[3]},
		{b[2], b[1]},
		{b[0], b[1]},
	}}
}

// AllCellsDry re-opens the raster and reports whether every pixel of
// the first band equals the declared nodata value. The full band is
// read on each call.
func (c *COG) AllCellsDry(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r, err := c.open(c.uri)
	if err != nil {
		return false, err
	}
	defer r.Close()

	nodata, ok := r.NoData()
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNoNoData, c.uri)
	}
	width, height := r.Size()
	data, err := r.ReadBand(1, width, height)
	if err != nil {
		return false, err
	}
	for _, v := range data {
		if !sameValue(v, nodata) {
			return false, nil
		}
	}
	return true, nil
}

// sameValue treats NaN as equal to itself so rasters using NaN as
// their nodata value compare correctly.
func sameValue(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}

// String formats the descriptor for logs and the inspect command.
func (c *COG) String() string {
	return fmt.Sprintf("COG(uri=%s bounds=%v projection=%s resolution=%v timestamp=%s)",
		c.uri, c.bounds, c.projection, c.resolution, c.timestamp.Format(time.RFC3339))
}
