package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/osio"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var vsiOnce sync.Once

// RegisterVSI registers the GDAL drivers and an S3-backed virtual
// filesystem handler so rasters can be opened directly from
// s3://bucket/key paths. It must be called once before any raster is
// opened remotely; subsequent calls are no-ops.
func RegisterVSI(ctx context.Context, client *s3.Client) error {
	var err error
	vsiOnce.Do(func() {
		godal.RegisterAll()

		handle, herr := osio.S3Handle(ctx, osio.S3Client(client))
		if herr != nil {
			err = fmt.Errorf("store: create s3 vsi handle: %w", herr)
			return
		}
		adapter, aerr := osio.NewAdapter(handle,
			osio.BlockSize("512Kb"),
			osio.NumCachedBlocks(64))
		if aerr != nil {
			err = fmt.Errorf("store: create vsi adapter: %w", aerr)
			return
		}
		if rerr := godal.RegisterVSIHandler("s3://", adapter); rerr != nil {
			err = fmt.Errorf("store: register s3 vsi handler: %w", rerr)
		}
	})
	return err
}
