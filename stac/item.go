// Package stac models SpatioTemporal Asset Catalog items and builds
// them from raster descriptors.
package stac

import (
	"encoding/json"
	"time"

	"github.com/paulmach/orb/geojson"
)

// Version is the STAC specification version items are written
// against.
const Version = "1.0.0"

// Media types used for item assets.
const (
	MediaTypeCOG = "image/tiff; application=geotiff; profile=cloud-optimized"
	MediaTypePNG = "image/png"
)

// Extension schema URLs attached to every item produced here.
const (
	ExtensionProjection = "https://stac-extensions.github.io/projection/v1.0.0/schema.json"
	ExtensionStorage    = "https://stac-extensions.github.io/storage/v1.0.0/schema.json"
	ExtensionProcessing = "https://stac-extensions.github.io/processing/v1.1.0/schema.json"
)

// Asset references a file that belongs to an item.
type Asset struct {
	Href  string   `json:"href"`
	Type  string   `json:"type,omitempty"`
	Title string   `json:"title,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Link relates an item to other catalog entities.
type Link struct {
	Rel   string `json:"rel"`
	Href  string `json:"href"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

// Item is a STAC item: a GeoJSON feature carrying catalog metadata
// and a set of named assets.
type Item struct {
	Type           string            `json:"type"`
	StacVersion    string            `json:"stac_version"`
	StacExtensions []string          `json:"stac_extensions,omitempty"`
	ID             string            `json:"id"`
	Geometry       *geojson.Geometry `json:"geometry"`
	BBox           []float64         `json:"bbox,omitempty"`
	Properties     map[string]any    `json:"properties"`
	Links          []Link            `json:"links"`
	Assets         map[string]Asset  `json:"assets"`
}

// NewItem returns an empty item with the fixed feature fields set.
func NewItem(id string) *Item {
	return &Item{
		Type:        "Feature",
		StacVersion: Version,
		ID:          id,
		Properties:  map[string]any{},
		Links:       []Link{},
		Assets:      map[string]Asset{},
	}
}

// AddAsset attaches an asset under the given key, replacing any
// previous asset with that key.
func (i *Item) AddAsset(key string, asset Asset) {
	i.Assets[key] = asset
}

// MarshalIndent serializes the item as indented JSON.
func (i *Item) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(i, "", "  ")
}

// FormatTime renders a timestamp the way STAC expects datetimes:
// RFC 3339 in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
