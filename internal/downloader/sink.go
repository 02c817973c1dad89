package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"gocloud.dev/blob"
)

// Sink is a destination for downloaded files.
type Sink interface {
	// Prepare makes the destination ready, e.g. by creating directories.
	Prepare(ctx context.Context) error

	// Create opens a new object for name, replacing any existing one.
	Create(ctx context.Context, name, contentType string) (Object, error)
}

// Object is a file being written to a Sink.
type Object interface {
	io.Writer

	// Location is the file path or blob key of the object.
	Location() string

	// Commit finishes a successful write.
	Commit() error

	// Abort finishes a failed write. Whatever was written may remain.
	Abort() error
}

// safeName reduces name to a single path element.
func safeName(name string) (string, error) {
	base := filepath.Base(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	switch base {
	case "", ".", "..", string(filepath.Separator):
		return "", fmt.Errorf("%w: invalid file name %q", ErrStorage, name)
	}
	return base, nil
}

// LocalSink writes files into a directory on the local filesystem.
type LocalSink struct {
	// Dir is the download directory. Relative paths are resolved against
	// the working directory.
	Dir string

	// Status receives human-readable notices. May be nil.
	Status io.Writer

	abs string
}

// Prepare resolves Dir and creates it with all missing parents.
func (s *LocalSink) Prepare(context.Context) error {
	abs, err := filepath.Abs(s.Dir)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %v", ErrStorage, s.Dir, err)
	}
	s.abs = abs

	if _, err := os.Stat(abs); err == nil {
		return nil
	}

	if s.Status != nil {
		fmt.Fprintf(s.Status, "[gdown] %s does not exist, creating it.\n", abs)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("%w: %s could not be created: %v", ErrStorage, abs, err)
	}
	log.Debugw("created download directory", "path", abs)
	return nil
}

// Path returns the resolved directory after Prepare.
func (s *LocalSink) Path() string {
	return s.abs
}

// Create truncates or creates the file name inside the directory.
func (s *LocalSink) Create(_ context.Context, name, _ string) (Object, error) {
	base, err := safeName(name)
	if err != nil {
		return nil, err
	}
	dir := s.abs
	if dir == "" {
		dir = s.Dir
	}

	p := filepath.Join(dir, base)
	f, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open file: %s: %v", ErrStorage, p, err)
	}
	return &localObject{f: f}, nil
}

type localObject struct {
	f *os.File
}

func (o *localObject) Write(p []byte) (int, error) { return o.f.Write(p) }

func (o *localObject) Location() string { return o.f.Name() }

func (o *localObject) Commit() error {
	err := multierr.Append(o.f.Sync(), o.f.Close())
	if err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrStorage, o.f.Name(), err)
	}
	return nil
}

func (o *localObject) Abort() error {
	if err := o.f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrStorage, o.f.Name(), err)
	}
	return nil
}

// BucketSink writes files to a gocloud blob bucket under Prefix.
type BucketSink struct {
	Bucket *blob.Bucket

	// URL is the bucket URL, used only for display.
	URL string

	// Prefix is prepended to object keys, e.g. "downloads".
	Prefix string
}

// Prepare checks that the bucket is reachable.
func (s *BucketSink) Prepare(ctx context.Context) error {
	ok, err := s.Bucket.IsAccessible(ctx)
	if err != nil {
		return fmt.Errorf("%w: bucket %s: %v", ErrStorage, s.URL, err)
	}
	if !ok {
		return fmt.Errorf("%w: bucket %s is not accessible", ErrStorage, s.URL)
	}
	return nil
}

// Create opens a blob writer for name. The blob is only visible once the
// object is committed.
func (s *BucketSink) Create(ctx context.Context, name, contentType string) (Object, error) {
	base, err := safeName(name)
	if err != nil {
		return nil, err
	}
	key := base
	if p := strings.Trim(filepath.ToSlash(s.Prefix), "/"); p != "" && p != "." {
		key = path.Join(p, base)
	}

	wctx, cancel := context.WithCancel(ctx)
	w, err := s.Bucket.NewWriter(wctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorage, key, err)
	}
	return &bucketObject{w: w, cancel: cancel, location: key}, nil
}

type bucketObject struct {
	w        *blob.Writer
	cancel   context.CancelFunc
	location string
}

func (o *bucketObject) Write(p []byte) (int, error) { return o.w.Write(p) }

func (o *bucketObject) Location() string { return o.location }

func (o *bucketObject) Commit() error {
	defer o.cancel()
	if err := o.w.Close(); err != nil {
		return fmt.Errorf("%w: commit %s: %v", ErrStorage, o.location, err)
	}
	return nil
}

// Abort cancels the pending upload so no partial blob is created.
func (o *bucketObject) Abort() error {
	o.cancel()
	if err := o.w.Close(); err != nil && !errors.Is(err, context.Canceled) {
		log.Debugw("abort blob write", "location", o.location, "err", err)
	}
	return nil
}
