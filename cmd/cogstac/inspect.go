package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/frd-data/cogstac/cog"
	"github.com/frd-data/cogstac/store"
)

func newInspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print a raster's georeferencing metadata",
		ArgsUsage: "s3://bucket/key",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "output",
				Usage: "Output format (text or json)",
				Value: "text",
			},
			&cli.BoolFlag{
				Name:  "dry-check",
				Usage: "Also report whether every cell is nodata",
			},
		},
		Action: executeInspect,
	}
}

type inspectReport struct {
	URI              string     `json:"uri"`
	Bounds           [4]float64 `json:"bounds"`
	GeographicBounds [4]float64 `json:"geographic_bounds"`
	Projection       string     `json:"projection"`
	Resolution       [2]float64 `json:"resolution"`
	Timestamp        string     `json:"datetime"`
	AllCellsDry      *bool      `json:"all_cells_dry,omitempty"`
}

func executeInspect(ctx context.Context, cmd *cli.Command) error {
	raster := cmd.Args().First()
	if raster == "" {
		return fmt.Errorf("inspect: raster path required")
	}
	bucket, key, err := store.SplitPath(raster)
	if err != nil {
		return err
	}

	st, _, err := newStore(ctx, cmd)
	if err != nil {
		return err
	}
	c, err := cog.FromS3(ctx, st, bucket, key, "viridis")
	if err != nil {
		return fmt.Errorf("inspect: describe %s: %w", raster, err)
	}

	geo, err := c.GeographicBounds()
	if err != nil {
		return fmt.Errorf("inspect: geographic bounds: %w", err)
	}
	report := inspectReport{
		URI:              c.URI(),
		Bounds:           c.Bounds(),
		GeographicBounds: geo,
		Projection:       c.Projection(),
		Resolution:       c.Resolution(),
		Timestamp:        c.Timestamp().Format(time.RFC3339),
	}
	if cmd.Bool("dry-check") {
		dry, err := c.AllCellsDry(ctx)
		if err != nil {
			return fmt.Errorf("inspect: nodata probe: %w", err)
		}
		report.AllCellsDry = &dry
	}

	switch output := strings.ToLower(strings.TrimSpace(cmd.String("output"))); output {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "text":
		printReport(report)
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", output)
	}
}

func printReport(report inspectReport) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "URI\t%s\n", report.URI)
	fmt.Fprintf(tw, "Projection\t%s\n", report.Projection)
	fmt.Fprintf(tw, "Bounds\t%v\n", report.Bounds)
	fmt.Fprintf(tw, "Geographic bounds\t%v\n", report.GeographicBounds)
	fmt.Fprintf(tw, "Resolution\t%g x %g\n", report.Resolution[0], report.Resolution[1])
	fmt.Fprintf(tw, "Timestamp\t%s\n", report.Timestamp)
	if report.AllCellsDry != nil {
		fmt.Fprintf(tw, "All cells dry\t%t\n", *report.AllCellsDry)
	}
	tw.Flush()
}
