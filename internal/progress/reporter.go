package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// barWidth is the number of cells in the rendered bar.
const barWidth = 40

// Options configures the progress reporter.
type Options struct {
	// Name is the file being downloaded (for display).
	Name string

	// TotalSize is the declared size in bytes (for display).
	TotalSize uint64

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// Quiet suppresses the bar; the header and final line are still printed.
	Quiet bool
}

// Reporter renders a percentage bar for a single download.
type Reporter struct {
	opts Options

	mu        sync.Mutex
	percent   uint64
	drawn     bool
	finished  bool
	startTime time.Time
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	return &Reporter{opts: opts}
}

// Start prints the download header.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.startTime = time.Now()
	fmt.Fprintf(r.opts.Output, "[gdown] Downloading: %s (%d MB) | %s\n",
		r.opts.Name,
		r.opts.TotalSize/(1024*1024),
		FormatBytes(r.opts.TotalSize),
	)
}

// Report sets the displayed percentage. Values above 100 are clamped and
// the display only moves forward.
func (r *Reporter) Report(percent uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return
	}
	if percent > 100 {
		percent = 100
	}
	if r.drawn && percent <= r.percent {
		return
	}
	r.percent = percent
	r.drawn = true
	if !r.opts.Quiet {
		fmt.Fprintf(r.opts.Output, "\r[gdown] %s", renderBar(percent))
	}
}

// Percent returns the last displayed percentage.
func (r *Reporter) Percent() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.percent
}

// Finish marks the bar complete and prints the summary line.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return
	}
	r.finished = true
	r.percent = 100

	duration := time.Since(r.startTime)
	if r.startTime.IsZero() || duration <= 0 {
		duration = time.Millisecond
	}
	avgSpeed := float64(r.opts.TotalSize) / duration.Seconds()

	if !r.opts.Quiet {
		fmt.Fprintf(r.opts.Output, "\r[gdown] %s\n", renderBar(100))
	}
	fmt.Fprintf(r.opts.Output, "[gdown] Complete: %s in %s | Average speed: %s/s\n",
		FormatBytes(r.opts.TotalSize),
		formatDuration(duration),
		FormatBytes(uint64(avgSpeed)),
	)
}

// Abort ends the bar line without marking it complete.
func (r *Reporter) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return
	}
	r.finished = true
	if r.drawn && !r.opts.Quiet {
		fmt.Fprintln(r.opts.Output)
	}
}

func renderBar(percent uint64) string {
	filled := int(percent) * barWidth / 100
	return fmt.Sprintf("[%s%s] %3d%%",
		strings.Repeat("#", filled),
		strings.Repeat("-", barWidth-filled),
		percent,
	)
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes formats bytes as a human-readable IEC string (e.g. "1.5 KiB").
func FormatBytes(b uint64) string {
	return humanize.IBytes(b)
}

// ParseBytes parses a human-readable byte string. IEC suffixes (KiB, MiB)
// are powers of 1024; SI suffixes (KB, MB) are powers of 1000.
func ParseBytes(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid byte string %q: %w", s, err)
	}
	if n > 1<<63-1 {
		return 0, fmt.Errorf("byte string %q overflows int64", s)
	}
	return int64(n), nil
}
