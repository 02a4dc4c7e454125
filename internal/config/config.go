package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

type Config struct {
	App
	SQLite
	MinIO
	HTTP
}

type App struct {
	MaxUploadBytes int64
	IngestTimeout  time.Duration
}

type SQLite struct {
	Path string
}

type MinIO struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type HTTP struct {
	Host         string
	Port         string
	IdleTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func Load(cmd *cli.Command) *Config {
	return &Config{
		App: App{
			MaxUploadBytes: int64(cmd.Int("max-upload-bytes")),
			IngestTimeout:  cmd.Duration("ingest-timeout"),
		},
		SQLite: SQLite{
			Path: cmd.String("db-path"),
		},
		MinIO: MinIO{
			Endpoint:  cmd.String("minio-endpoint"),
			AccessKey: cmd.String("minio-access-key"),
			SecretKey: cmd.String("minio-secret-key"),
			UseSSL:    cmd.Bool("minio-use-ssl"),
			Bucket:    cmd.String("minio-bucket"),
		},
		HTTP: HTTP{
			Host:         cmd.String("http-host"),
			Port:         cmd.String("http-port"),
			IdleTimeout:  cmd.Duration("http-idle-timeout"),
			ReadTimeout:  cmd.Duration("http-read-timeout"),
			WriteTimeout: cmd.Duration("http-write-timeout"),
		},
	}
}
