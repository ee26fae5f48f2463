// Command cogstac converts Cloud-Optimized GeoTIFFs in object
// storage into STAC items.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/frd-data/cogstac/internal/logging"
	"github.com/frd-data/cogstac/store"
)

func main() {
	root := &cli.Command{
		Name:    "cogstac",
		Usage:   "Convert Cloud-Optimized GeoTIFFs in S3 into STAC items",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "region",
				Usage:   "AWS region of the raster bucket",
				Sources: cli.EnvVars("AWS_REGION"),
			},
			&cli.StringFlag{
				Name:    "endpoint",
				Usage:   "Override the S3 endpoint URL",
				Sources: cli.EnvVars("AWS_S3_ENDPOINT_URL"),
			},
			&cli.BoolFlag{
				Name:  "anonymous",
				Usage: "Access the bucket without credentials",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("COGSTAC_LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:  "log-console",
				Usage: "Human-readable log output instead of JSON",
			},
		},
		Commands: []*cli.Command{
			newInspectCommand(),
			newConvertCommand(),
			newFetchCommand(),
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		logging.NewStderr(logging.Config{Level: "info", Console: true}).
			Fatal().Err(err).Msg("cogstac failed")
	}
}

func newLogger(cmd *cli.Command) zerolog.Logger {
	root := cmd.Root()
	return logging.NewStderr(logging.Config{
		Level:   root.String("log-level"),
		Console: root.Bool("log-console"),
	})
}

// newStore builds the object-store client from the root flags and
// registers the s3:// raster handler.
func newStore(ctx context.Context, cmd *cli.Command) (*store.Store, *s3.Client, error) {
	root := cmd.Root()
	client, err := store.NewClient(ctx, store.ClientConfig{
		Region:    root.String("region"),
		Endpoint:  root.String("endpoint"),
		Anonymous: root.Bool("anonymous"),
	})
	if err != nil {
		return nil, nil, err
	}
	if err := store.RegisterVSI(ctx, client); err != nil {
		return nil, nil, err
	}
	return store.New(client), client, nil
}
