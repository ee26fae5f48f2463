package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/frd-data/cogstac/cog"
	"github.com/frd-data/cogstac/stac"
	"github.com/frd-data/cogstac/store"
)

func newConvertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert a raster into a STAC item",
		ArgsUsage: "s3://bucket/key",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "item-id",
				Usage: "Item identifier (defaults to the raster filename)",
			},
			&cli.StringFlag{
				Name:  "colormap",
				Usage: "Color map for the thumbnail",
				Value: "viridis",
			},
			&cli.StringFlag{
				Name:  "thumbnail",
				Usage: "Path to write the thumbnail PNG",
				Value: "thumbnail.png",
			},
			&cli.BoolFlag{
				Name:  "no-thumbnail",
				Usage: "Skip thumbnail rendering",
			},
			&cli.BoolFlag{
				Name:  "skip-dry",
				Usage: "Produce no item when every raster cell is nodata",
			},
			&cli.StringFlag{
				Name:  "project",
				Usage: "Project tag recorded in the item properties",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Project status recorded in the item properties",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Path to write the item JSON (defaults to stdout)",
			},
		},
		Action: executeConvert,
	}
}

func executeConvert(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd)

	raster := cmd.Args().First()
	if raster == "" {
		return fmt.Errorf("convert: raster path required")
	}
	bucket, key, err := store.SplitPath(raster)
	if err != nil {
		return err
	}

	st, _, err := newStore(ctx, cmd)
	if err != nil {
		return err
	}

	c, err := cog.FromS3(ctx, st, bucket, key, cmd.String("colormap"))
	if err != nil {
		return fmt.Errorf("convert: describe %s: %w", raster, err)
	}
	logger.Debug().Str("uri", c.URI()).Str("projection", c.Projection()).Msg("raster described")

	if cmd.Bool("skip-dry") {
		dry, err := c.AllCellsDry(ctx)
		if err != nil {
			return fmt.Errorf("convert: nodata probe: %w", err)
		}
		if dry {
			logger.Info().Str("uri", c.URI()).Msg("raster is entirely nodata, skipping")
			return nil
		}
	}

	itemID := strings.TrimSpace(cmd.String("item-id"))
	if itemID == "" {
		itemID = strings.TrimSuffix(path.Base(key), path.Ext(key))
	}

	var builderOpts []stac.BuilderOption
	if project := strings.TrimSpace(cmd.String("project")); project != "" {
		builderOpts = append(builderOpts, stac.WithProject(project))
	}
	if status := strings.TrimSpace(cmd.String("status")); status != "" {
		builderOpts = append(builderOpts, stac.WithProjectStatus(status))
	}

	builder := stac.NewBuilder(c, builderOpts...)
	buildThumbnail := !cmd.Bool("no-thumbnail")
	item, err := builder.Item(ctx, itemID, cmd.String("thumbnail"), buildThumbnail)
	if err != nil {
		return fmt.Errorf("convert: build item: %w", err)
	}
	if buildThumbnail {
		logger.Info().Str("path", cmd.String("thumbnail")).Msg("thumbnail written")
	}

	data, err := item.MarshalIndent()
	if err != nil {
		return fmt.Errorf("convert: serialize item: %w", err)
	}
	data = append(data, '\n')

	if out := strings.TrimSpace(cmd.String("out")); out != "" {
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("convert: write item: %w", err)
		}
		logger.Info().Str("path", out).Str("item", itemID).Msg("item written")
		return nil
	}
	_, err = os.Stdout.Write(data)
	return err
}
