package downloader

import (
	"context"
	"errors"
	"fmt"

	logging "github.com/ipfs/go-log/v2"
	"go.uber.org/multierr"
	"golang.org/x/oauth2"

	"github.com/ligustah/gdown/internal/drive"
)

var log = logging.Logger("gdown/downloader")

// Errors returned by Download.
var (
	// ErrNoContentLength is returned when the media response does not
	// declare its length. Nothing is written in that case.
	ErrNoContentLength = errors.New("downloader: content length is not defined")

	// ErrStorage reports a failure to create or write the destination.
	ErrStorage = errors.New("downloader: storage error")
)

// Options configures the downloader.
type Options struct {
	// BufferSize bounds the size of a single chunk.
	// Default: DefaultBufferSize
	BufferSize int

	// OnStart is called once the destination is open, before the first
	// chunk, with the declared content length.
	OnStart func(contentLength uint64)

	// Progress receives the completed percentage after every chunk.
	Progress ProgressFunc
}

// Result describes a finished download.
type Result struct {
	Location      string
	ContentLength uint64
	Written       uint64
}

// Download fetches the content of file and stores it in sink under the
// file's name. The token is used for the media request only.
//
// On a failed transfer the destination is aborted, which for LocalSink
// leaves the partial file on disk.
func Download(ctx context.Context, client *drive.Client, token *oauth2.Token, file *drive.File, sink Sink, opts Options) (*Result, error) {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	if err := sink.Prepare(ctx); err != nil {
		return nil, err
	}

	resp, err := client.OpenMedia(ctx, token, file.ID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength < 0 {
		return nil, fmt.Errorf("download %s: %w", file.Name, ErrNoContentLength)
	}
	total := uint64(resp.ContentLength)
	if total != file.Size {
		log.Warnw("content length differs from declared size", "name", file.Name, "content_length", total, "size", file.Size)
	}

	obj, err := sink.Create(ctx, file.Name, file.MimeType)
	if err != nil {
		return nil, err
	}
	log.Debugw("writing", "location", obj.Location(), "content_length", total)

	if opts.OnStart != nil {
		opts.OnStart(total)
	}

	written, err := Transfer(ctx, resp.Body, total, obj, make([]byte, opts.BufferSize), opts.Progress)
	if err != nil {
		err = multierr.Append(fmt.Errorf("download %s: %w", file.Name, err), obj.Abort())
		log.Debugw("download failed", "location", obj.Location(), "written", written, "err", err)
		return nil, err
	}

	if err := obj.Commit(); err != nil {
		return nil, err
	}

	return &Result{
		Location:      obj.Location(),
		ContentLength: total,
		Written:       written,
	}, nil
}
