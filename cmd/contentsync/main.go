// Command contentsync mirrors the markdown content tree between a local
// directory and the object storage bucket the portal pulls from at startup.
//
//	contentsync pull [--dir content] [--prefix kb/]
//	contentsync push [--dir content] [--prefix kb/]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/insideadapt/kb-portal/internal/config"
	"github.com/insideadapt/kb-portal/internal/storage"
	"github.com/insideadapt/kb-portal/pkg/logger"
	"github.com/spf13/pflag"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	fs := pflag.NewFlagSet("contentsync", pflag.ExitOnError)
	dir := fs.String("dir", cfg.Content.Dir, "local content directory")
	prefix := fs.String("prefix", cfg.MinIO.Prefix, "object key prefix inside the bucket")
	bucket := fs.String("bucket", cfg.MinIO.Bucket, "bucket name")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: contentsync <pull|push> [flags]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mcfg := storage.MinIOConfig(cfg.MinIO)
	mcfg.Bucket = *bucket
	store, err := storage.NewMinIOStorage(ctx, &mcfg)
	if err != nil {
		logger.Fatalf("minio: %v", err)
	}

	var stats storage.SyncStats
	switch fs.Arg(0) {
	case "pull":
		stats, err = storage.Pull(ctx, store, *prefix, *dir)
	case "push":
		stats, err = storage.Push(ctx, store, *prefix, *dir)
	default:
		fs.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatalf("%s failed after %d objects: %v", fs.Arg(0), stats.Transferred, err)
	}
	fmt.Printf("%s: %d transferred, %d skipped\n", fs.Arg(0), stats.Transferred, stats.Skipped)
}
