package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/ligustah/gdown/internal/config"
	"github.com/ligustah/gdown/internal/downloader"
	"github.com/ligustah/gdown/internal/progress"
)

func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)
	dir := fs.String("dir", "", "Download directory, relative to the working directory (default downloads)")
	bucket := fs.String("bucket", "", "Write to this bucket URL (s3://, gs://, file://, mem://) instead of the local directory")
	noProgress := fs.Bool("no-progress", false, "Do not draw the progress bar")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: gdown fetch [options] [file-id]

Authenticate, look up the file and stream its content to
<download-dir>/<file-name>, overwriting any existing file.
A failed transfer leaves the partial file on disk.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	cfg, err := common.load(fs)
	if err != nil {
		return fail(err)
	}
	cfg = cfg.Merge(config.Config{DownloadDir: *dir, Bucket: *bucket})
	if *noProgress {
		cfg.Progress = false
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	ctx, cancel := runContext(cfg.Timeout)
	defer cancel()

	fmt.Fprintln(stderr, "[gdown] GDown")
	return fetch(ctx, cfg)
}

func fetch(ctx context.Context, cfg config.Config) int {
	s, err := openSession(ctx, cfg)
	if err != nil {
		return fail(err)
	}

	file, err := s.drive.GetFile(ctx, s.token, cfg.FileID)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(stderr, "[gdown] Found: %s\n", file)

	sink, closeSink, err := openSink(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	defer closeSink()

	reporter := progress.NewReporter(progress.Options{
		Name:      file.Name,
		TotalSize: file.Size,
		Output:    stderr,
		Quiet:     !cfg.Progress,
	})

	res, err := downloader.Download(ctx, s.drive, s.token, file, sink, downloader.Options{
		BufferSize: int(cfg.BufferSize),
		OnStart:    func(uint64) { reporter.Start() },
		Progress:   reporter.Report,
	})
	if err != nil {
		reporter.Abort()
		return fail(err)
	}
	reporter.Finish()

	fmt.Fprintf(stderr, "[gdown] Saved %d bytes to %s\n", res.Written, res.Location)
	return ExitSuccess
}

// openSink returns the local directory sink, or a bucket sink when a bucket
// URL is configured.
func openSink(ctx context.Context, cfg config.Config) (downloader.Sink, func(), error) {
	if cfg.Bucket == "" {
		return &downloader.LocalSink{Dir: cfg.DownloadDir, Status: stderr}, func() {}, nil
	}

	b, err := blob.OpenBucket(ctx, cfg.Bucket)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open bucket %s: %v", downloader.ErrStorage, cfg.Bucket, err)
	}
	fmt.Fprintf(stderr, "[gdown] Writing to bucket %s\n", cfg.Bucket)

	closeFn := func() {
		if err := b.Close(); err != nil {
			log.Warnw("close bucket", "url", cfg.Bucket, "err", err)
		}
	}
	return &downloader.BucketSink{Bucket: b, URL: cfg.Bucket, Prefix: cfg.DownloadDir}, closeFn, nil
}
