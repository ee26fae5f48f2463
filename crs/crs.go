// Package crs wraps PROJ coordinate transformations behind a small
// interface so raster code can reproject bounding boxes without
// carrying PROJ types around.
package crs

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-proj/v10"
)

// WGS84 is the geographic reference system all footprints are
// expressed in.
const WGS84 = "EPSG:4326"

// ErrEmptyCRS is returned when a transformer is requested for an
// empty coordinate reference system string.
var ErrEmptyCRS = errors.New("crs: empty coordinate reference system")

// Transformer converts a single coordinate pair between two fixed
// reference systems. Coordinates are always x,y (easting/longitude
// first), regardless of the axis order the authority defines.
type Transformer interface {
	Transform(x, y float64) (float64, float64, error)
}

// Factory produces transformers for a source/target CRS pair. It
// exists as a seam: tests substitute a deterministic implementation.
type Factory func(source, target string) (Transformer, error)

// projTransformer holds a normalized PROJ pipeline. The underlying
// handle is released by the binding's finalizer.
type projTransformer struct {
	pj *proj.PJ
}

// NewTransformer builds a PROJ-backed transformer between two
// reference systems. Source and target accept authority codes
// ("EPSG:26917") or WKT. The transform is normalized so input and
// output are longitude/latitude (x,y) ordered.
func NewTransformer(source, target string) (Transformer, error) {
	if source == "" || target == "" {
		return nil, ErrEmptyCRS
	}
	pj, err := proj.NewCRSToCRS(source, target, nil)
	if err != nil {
		return nil, fmt.Errorf("crs: create transform %q -> %q: %w", source, target, err)
	}
	normalized, err := pj.NormalizeForVisualization()
	if err != nil {
		return nil, fmt.Errorf("crs: normalize transform axis order: %w", err)
	}
	return &projTransformer{pj: normalized}, nil
}

func (t *projTransformer) Transform(x, y float64) (float64, float64, error) {
	out, err := t.pj.Forward(proj.NewCoord(x, y, 0, 0))
	if err != nil {
		return 0, 0, fmt.Errorf("crs: transform (%g, %g): %w", x, y, err)
	}
	return out.X(), out.Y(), nil
}
