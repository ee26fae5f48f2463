package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/frd-data/cogstac/store"
)

func newFetchCommand() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Download raster objects to a local directory",
		ArgsUsage: "s3://bucket/key [s3://bucket/key...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Destination directory",
				Value: ".",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of parallel transfers",
				Value: 2,
			},
		},
		Action: executeFetch,
	}
}

func executeFetch(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd)

	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("fetch: at least one raster path required")
	}

	keysByBucket := map[string][]string{}
	for _, raster := range paths {
		bucket, key, err := store.SplitPath(raster)
		if err != nil {
			return err
		}
		keysByBucket[bucket] = append(keysByBucket[bucket], key)
	}

	st, _, err := newStore(ctx, cmd)
	if err != nil {
		return err
	}

	dir := cmd.String("dir")
	concurrency := int(cmd.Int("concurrency"))
	for bucket, keys := range keysByBucket {
		logger.Info().Str("bucket", bucket).Int("objects", len(keys)).Str("dir", dir).Msg("downloading")
		if err := st.DownloadAll(ctx, bucket, keys, dir, concurrency); err != nil {
			return fmt.Errorf("fetch: bucket %s: %w", bucket, err)
		}
	}
	return nil
}
