package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"

	gdhttp "github.com/ligustah/gdown/internal/http"
)

// DefaultBufferSize bounds the size of a single chunk read from the body.
const DefaultBufferSize = 256 * 1024

// ProgressFunc receives the completed percentage after each chunk.
type ProgressFunc func(percent uint64)

// Transfer copies src to dst one chunk at a time, where a chunk is whatever a
// single Read returns. After each chunk the cumulative byte count is turned
// into a percentage of total and passed to report, then the chunk is written.
// It returns the number of bytes written.
//
// Read errors are returned as is; write errors match ErrStorage.
func Transfer(ctx context.Context, src io.Reader, total uint64, dst io.Writer, buf []byte, report ProgressFunc) (uint64, error) {
	if len(buf) == 0 {
		buf = make([]byte, DefaultBufferSize)
	}
	if report == nil {
		report = func(uint64) {}
	}

	var written uint64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			report(Percent(written+uint64(n), total))

			nw, err := dst.Write(buf[:n])
			written += uint64(nw)
			if err != nil {
				return written, fmt.Errorf("%w: write: %v", ErrStorage, err)
			}
			if nw != n {
				return written, fmt.Errorf("%w: write: %v", ErrStorage, io.ErrShortWrite)
			}
		}
		if errors.Is(readErr, io.EOF) {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("%w: read chunk: %w", gdhttp.ErrTransport, readErr)
		}
	}
}

// Percent returns done*100/total using integer division. A zero total
// counts as complete.
func Percent(done, total uint64) uint64 {
	if total == 0 {
		return 100
	}
	hi, lo := bits.Mul64(done, 100)
	if hi >= total {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, total)
	return q
}
