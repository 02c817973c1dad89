package drive

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
)

// ErrAuthorization reports a request rejected for authorization reasons, or
// a response that did not have the expected shape. The API answers with an
// error document instead of file metadata when the token is expired or
// invalid, so both cases are reported the same way.
var ErrAuthorization = errors.New("drive: not authorized (token may be expired or invalid)")

// File describes a remote file.
type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`

	// Size is the declared size in bytes.
	Size uint64 `json:"size"`
}

func (f *File) String() string {
	return fmt.Sprintf("%s (id=%s, type=%s, size=%s)", f.Name, f.ID, f.MimeType, humanize.IBytes(f.Size))
}

// MetadataError reports a metadata response that could not be interpreted.
// It matches ErrAuthorization under errors.Is.
type MetadataError struct {
	// Field is the missing or invalid field, or empty when the body was
	// not a JSON object at all.
	Field string
	Err   error
}

func (e *MetadataError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("file metadata: %v (token may be expired or invalid)", e.Err)
	}
	return fmt.Sprintf("file metadata: field %q: %v (token may be expired or invalid)", e.Field, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

func (e *MetadataError) Is(target error) bool { return target == ErrAuthorization }

var errMissing = errors.New("missing")

// wireFile mirrors the JSON document; pointers distinguish absent fields.
type wireFile struct {
	ID       *string `json:"id"`
	Name     *string `json:"name"`
	MimeType *string `json:"mimeType"`
	Size     *string `json:"size"`
}

// ParseFile decodes a metadata document. The size is transmitted as a
// decimal string and is parsed as an unsigned 64-bit integer.
func ParseFile(data []byte) (*File, error) {
	var w wireFile
	if err := json.Unmarshal(data, &w); err != nil {
		var ute *json.UnmarshalTypeError
		if errors.As(err, &ute) {
			return nil, &MetadataError{Field: ute.Field, Err: err}
		}
		return nil, &MetadataError{Err: err}
	}

	for _, f := range []struct {
		name string
		v    *string
	}{
		{"id", w.ID},
		{"name", w.Name},
		{"mimeType", w.MimeType},
		{"size", w.Size},
	} {
		if f.v == nil {
			return nil, &MetadataError{Field: f.name, Err: errMissing}
		}
	}

	size, err := strconv.ParseUint(*w.Size, 10, 64)
	if err != nil {
		return nil, &MetadataError{Field: "size", Err: err}
	}

	return &File{
		ID:       *w.ID,
		Name:     *w.Name,
		MimeType: *w.MimeType,
		Size:     size,
	}, nil
}
