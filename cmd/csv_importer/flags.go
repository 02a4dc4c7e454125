package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/semenovpa/csv_importer/internal/app"
	"github.com/semenovpa/csv_importer/internal/config"
)

var version = "dev"

func cmd() *cli.Command {
	return &cli.Command{
		Name:    "csv_importer",
		Usage:   "CSV import service with object-storage mirroring",
		Version: version,
		Flags:   flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log, ok := ctx.Value(loggerKey{}).(*slog.Logger)
			if !ok {
				return errors.New("failed to get logger from context")
			}

			cfg := config.Load(cmd)

			return app.New(log, cfg).Run(ctx)
		},
	}
}

func flags() []cli.Flag {
	var config string

	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Validator:   validateConfig,
			Usage:       "Load configuration from `FILE`",
			Destination: &config,
		},
		&cli.StringFlag{
			Name:    "db-path",
			Aliases: []string{"d"},
			Usage:   "Set SQLite database file path",
			Value:   "data/app.db",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("DB_PATH"),
				yaml.YAML("storage.db_path", altsrc.NewStringPtrSourcer(&config)),
			),
		},
		&cli.StringFlag{
			Name:  "minio-endpoint",
			Usage: "Set object storage endpoint (host:port)",
			Value: "localhost:9000",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("MINIO_ENDPOINT"),
				yaml.YAML("minio.endpoint", altsrc.NewStringPtrSourcer(&config)),
			),
		},
		&cli.StringFlag{
			Name:  "minio-access-key",
			Usage: "Set object storage access key",
			Value: "miniokey",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("MINIO_ACCESS_KEY"),
				yaml.YAML("minio.access_key", altsrc.NewStringPtrSourcer(&config)),
			),
		},
		&cli.StringFlag{
			Name:  "minio-secret-key",
			Usage: "Set object storage secret key",
			Value: "miniosecret",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("MINIO_SECRET_KEY"),
				yaml.YAML("minio.secret_key", altsrc.NewStringPtrSourcer(&config)),
			),
		},
		&cli.BoolFlag{
			Name:  "minio-use-ssl",
			Usage: "Use TLS when talking to object storage",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("MINIO_USE_SSL"),
				yaml.YAML("minio.use_ssl", altsrc.NewStringPtrSourcer(&config)),
			),
		},
		&cli.StringFlag{
			Name:  "minio-bucket",
			Usage: "Set bucket uploads are mirrored into",
			Value: "uploads",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("MINIO_BUCKET"),
				yaml.YAML("minio.bucket", altsrc.NewStringPtrSourcer(&config)),
			),
		},
		&cli.IntFlag{
			Name:  "max-upload-bytes",
			Usage: "Set maximum accepted upload size in bytes",
			Value: 5 << 20,
			Sources: cli.NewValueSourceChain(
				yaml.YAML("app.max_upload_bytes", altsrc.NewStringPtrSourcer(&config)),
			),
		},
		&cli.DurationFlag{
			Name:  "ingest-timeout",
			Usage: "Set per-object webhook ingestion timeout",
			Value: 2 * time.Minute,
			Sources: cli.NewValueSourceChain(
				yaml.YAML("app.ingest_timeout", altsrc.NewStringPtrSourcer(&config)),
			),
		},
		&cli.StringFlag{
			Name:  "http-host",
			Usage: "Set HTTP server host",
			Value: "0.0.0.0",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("HTTP_HOST"),
				yaml.YAML("http.host", altsrc.NewStringPtrSourcer(&config)),
			),
		},
		&cli.StringFlag{
			Name:  "http-port",
			Usage: "Set HTTP server port",
			Value: "8080",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("HTTP_PORT"),
				yaml.YAML("http.port", altsrc.NewStringPtrSourcer(&config)),
			),
		},
		&cli.DurationFlag{
			Name:    "http-idle-timeout",
			Usage:   "Set HTTP server idle timeout",
			Value:   1 * time.Minute,
			Sources: cli.NewValueSourceChain(yaml.YAML("http.idle_timeout", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.DurationFlag{
			Name:    "http-read-timeout",
			Usage:   "Set HTTP server read timeout",
			Value:   15 * time.Second,
			Sources: cli.NewValueSourceChain(yaml.YAML("http.read_timeout", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.DurationFlag{
			Name:    "http-write-timeout",
			Usage:   "Set HTTP server write timeout",
			Value:   30 * time.Second,
			Sources: cli.NewValueSourceChain(yaml.YAML("http.write_timeout", altsrc.NewStringPtrSourcer(&config))),
		},
	}
}

func validateConfig(config string) error {
	info, err := os.Stat(config)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%q does not exist", config)
		}
		return fmt.Errorf("failed to stat %q: %w", config, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%q is a directory, not a file", config)
	}

	ext := filepath.Ext(info.Name())
	if ext != ".yml" && ext != ".yaml" {
		return fmt.Errorf("invalid extension %q", config)
	}

	return nil
}
