package stac

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/frd-data/cogstac/cog"
)

// Property keys written by the builder.
const (
	PropertyProject       = "frd:proj"
	PropertyProjectStatus = "frd:project_status"
	PropertyNativeBBox    = "proj:bbox"
	PropertyNativeWKT     = "proj:wkt2"
	PropertySoftware      = "processing:software"
)

// Asset keys written by the builder.
const (
	AssetKeyData      = "cog"
	AssetKeyThumbnail = "thumbnail"
)

// Defaults for the fixed domain metadata attached to every item.
const (
	DefaultProject       = "kanawha"
	DefaultProjectStatus = "FFRD pilot"
	softwareName         = "cogstac"
	softwareVersion      = "0.1.0"

	// Items are packaged next to a co-located copy of the raster, so
	// asset hrefs are fixed relative filenames rather than the
	// source object path.
	DefaultDataHref      = "grid.tif"
	DefaultThumbnailHref = "thumbnail.png"
)

// Builder assembles STAC items from a raster descriptor.
type Builder struct {
	cog           *cog.COG
	project       string
	projectStatus string
	software      map[string]string
	dataHref      string
	thumbnailHref string
	clock         func() time.Time
}

// BuilderOption mutates the builder when constructing it.
type BuilderOption func(*Builder)

// WithProject overrides the project tag.
func WithProject(project string) BuilderOption {
	return func(b *Builder) {
		if project != "" {
			b.project = project
		}
	}
}

// WithProjectStatus overrides the project status tag.
func WithProjectStatus(status string) BuilderOption {
	return func(b *Builder) {
		if status != "" {
			b.projectStatus = status
		}
	}
}

// WithSoftware overrides the processing-software tag.
func WithSoftware(software map[string]string) BuilderOption {
	return func(b *Builder) {
		if len(software) > 0 {
			b.software = software
		}
	}
}

// WithDataHref overrides the relative href of the data asset.
func WithDataHref(href string) BuilderOption {
	return func(b *Builder) {
		if href != "" {
			b.dataHref = href
		}
	}
}

// WithThumbnailHref overrides the relative href of the thumbnail
// asset.
func WithThumbnailHref(href string) BuilderOption {
	return func(b *Builder) {
		if href != "" {
			b.thumbnailHref = href
		}
	}
}

// WithClock injects the time source used for the created/updated
// properties. Defaults to time.Now.
func WithClock(clock func() time.Time) BuilderOption {
	return func(b *Builder) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// NewBuilder wraps a raster descriptor with the metadata needed to
// emit catalog items.
func NewBuilder(c *cog.COG, opts ...BuilderOption) *Builder {
	b := &Builder{
		cog:           c,
		project:       DefaultProject,
		projectStatus: DefaultProjectStatus,
		software:      map[string]string{softwareName: softwareVersion},
		dataHref:      DefaultDataHref,
		thumbnailHref: DefaultThumbnailHref,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Item assembles a catalog item for the descriptor. The geometry is
// the descriptor's cached footprint; the bounding box is recomputed
// from the native bounds. When buildThumbnail is set, a thumbnail is
// rendered to thumbnailPath and referenced as a second asset; a
// render failure fails the build.
func (b *Builder) Item(ctx context.Context, itemID, thumbnailPath string, buildThumbnail bool) (*Item, error) {
	bbox, err := b.cog.GeographicBounds()
	if err != nil {
		return nil, fmt.Errorf("stac: compute item bbox: %w", err)
	}

	now := FormatTime(b.clock())
	item := NewItem(itemID)
	item.StacExtensions = []string{
		ExtensionProjection,
		ExtensionStorage,
		ExtensionProcessing,
	}
	item.Geometry = geojson.NewGeometry(b.cog.Footprint())
	item.BBox = bbox[:]
	item.Properties = map[string]any{
		"datetime":            FormatTime(b.cog.Timestamp()),
		PropertyProject:       b.project,
		PropertyProjectStatus: b.projectStatus,
		PropertyNativeBBox:    b.cog.Bounds(),
		PropertyNativeWKT:     b.cog.Projection(),
		PropertySoftware:      b.software,
		"created":             now,
		"updated":             now,
	}

	item.AddAsset(AssetKeyData, Asset{
		Href:  b.dataHref,
		Type:  MediaTypeCOG,
		Roles: []string{"data"},
	})

	if buildThumbnail {
		if err := b.cog.CreateThumbnail(ctx, thumbnailPath); err != nil {
			return nil, fmt.Errorf("stac: render thumbnail: %w", err)
		}
		item.AddAsset(AssetKeyThumbnail, Asset{
			Href:  b.thumbnailHref,
			Type:  MediaTypePNG,
			Roles: []string{"thumbnail"},
		})
	}

	return item, nil
}
