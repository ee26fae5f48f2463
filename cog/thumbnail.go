package cog

import (
	"context"
	"fmt"

	"github.com/frd-data/cogstac/cog/internal/render"
)

// DefaultThumbnailFactor is the down-sampling divisor applied to both
// raster dimensions when rendering a thumbnail.
const DefaultThumbnailFactor = 4

// ThumbnailOption customises thumbnail rendering.
type ThumbnailOption func(*thumbnailConfig)

type thumbnailConfig struct {
	factor int
}

// WithFactor overrides the down-sampling divisor.
func WithFactor(factor int) ThumbnailOption {
	return func(cfg *thumbnailConfig) {
		if factor > 0 {
			cfg.factor = factor
		}
	}
}

// CreateThumbnail re-opens the raster, resamples every band to a grid
// of width/factor by height/factor using averaging, and writes the
// first band as a PNG colorized with the descriptor's color map.
func (c *COG) CreateThumbnail(ctx context.Context, path string, opts ...ThumbnailOption) error {
	cfg := thumbnailConfig{factor: DefaultThumbnailFactor}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r, err := c.open(c.uri)
	if err != nil {
		return err
	}
	defer r.Close()

	width, height := r.Size()
	outW, outH := width/cfg.factor, height/cfg.factor
	if outW < 1 || outH < 1 {
		return fmt.Errorf("cog: thumbnail factor %d too large for %dx%d raster", cfg.factor, width, height)
	}

	resampled := make([][]float64, r.Bands())
	for band := 1; band <= r.Bands(); band++ {
		resampled[band-1], err = r.ReadBand(band, outW, outH)
		if err != nil {
			return err
		}
	}
	if len(resampled) == 0 {
		return ErrNoBands
	}
	return render.WritePNG(path, resampled[0], outW, outH, c.colorMap)
}
