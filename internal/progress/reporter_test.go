package progress

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    uint64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{256 * 1024 * 1024, "256 MiB"},
		{1024 * 1024 * 1024, "1.0 GiB"},
		{1024 * 1024 * 1024 * 1024, "1.0 TiB"},
		{2.5 * 1024 * 1024 * 1024 * 1024, "2.5 TiB"},
		{1 << 63, "8.0 EiB"},
		{math.MaxUint64, "16 EiB"},
	}

	for _, tt := range tests {
		result := FormatBytes(tt.input)
		if result != tt.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"100", 100},
		{"100B", 100},
		{"1KiB", 1024},
		{"1.5KiB", 1536},
		{"256MiB", 256 * 1024 * 1024},
		{"1GiB", 1024 * 1024 * 1024},
		// SI units
		{"1KB", 1000},
		{"1MB", 1000 * 1000},
	}

	for _, tt := range tests {
		result, err := ParseBytes(tt.input)
		if err != nil {
			t.Errorf("ParseBytes(%q): %v", tt.input, err)
			continue
		}
		if result != tt.expected {
			t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, result, tt.expected)
		}
	}
}

func TestParseBytesInvalid(t *testing.T) {
	_, err := ParseBytes("invalid")
	if err == nil {
		t.Error("expected error for invalid input")
	}
}

func TestReporterSequence(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(Options{Name: "file.txt", TotalSize: 3 * 1024 * 1024, Output: &out})

	r.Start()
	for _, p := range []uint64{10, 30, 30, 20, 100} {
		r.Report(p)
	}
	assert.Equal(t, uint64(100), r.Percent())
	r.Finish()

	s := out.String()
	assert.Contains(t, s, "[gdown] Downloading: file.txt (3 MB) | 3.0 MiB\n")
	assert.Equal(t, 1, strings.Count(s, " 10%"))
	assert.Equal(t, 1, strings.Count(s, " 30%"))
	assert.NotContains(t, s, " 20%")
	assert.Contains(t, s, "[gdown] Complete: 3.0 MiB")
	assert.True(t, strings.HasSuffix(s, "/s\n"))
}

func TestReporterHugeSize(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(Options{Name: "big.bin", TotalSize: math.MaxUint64, Output: &out})
	r.Start()

	assert.Contains(t, out.String(), "| 16 EiB\n")
	assert.NotContains(t, out.String(), "-")
}

func TestReporterClampsAndIgnoresAfterFinish(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(Options{Output: &out})
	r.Start()
	r.Report(250)
	assert.Equal(t, uint64(100), r.Percent())

	r.Finish()
	n := out.Len()
	r.Report(50)
	r.Finish()
	assert.Equal(t, n, out.Len())
}

func TestReporterQuiet(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(Options{Name: "a", TotalSize: 10, Output: &out, Quiet: true})
	r.Start()
	r.Report(50)
	r.Finish()
	assert.NotContains(t, out.String(), "#")
	assert.Contains(t, out.String(), "Complete")
}

func TestReporterAbort(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(Options{Name: "a", TotalSize: 10, Output: &out})
	r.Start()
	r.Report(40)
	r.Abort()
	require.True(t, strings.HasSuffix(out.String(), " 40%\n"))
	assert.NotContains(t, out.String(), "Complete")
}

func TestRenderBar(t *testing.T) {
	assert.Equal(t, "["+strings.Repeat("-", barWidth)+"]   0%", renderBar(0))
	assert.Equal(t, "["+strings.Repeat("#", barWidth)+"] 100%", renderBar(100))
	assert.Equal(t, "["+strings.Repeat("#", 20)+strings.Repeat("-", 20)+"]  50%", renderBar(50))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500ms", formatDuration(500*time.Millisecond))
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "2m 5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h 1m 1s", formatDuration(3661*time.Second))
}
