// Package drive looks up file metadata and opens file content on a
// Drive-style files API.
//
// Metadata is requested with the field mask "id,name,mimeType,size" and the
// string-encoded size is parsed as a uint64. Responses that cannot be read as
// metadata, and 401/403 responses, match ErrAuthorization.
package drive
