// Package downloader streams file content from the files API into a sink.
//
// The transfer is strictly sequential: each chunk returned by the response
// body is counted, reported as a percentage of the declared content length
// and written before the next chunk is read.
//
// # Usage
//
//	res, err := downloader.Download(ctx, driveClient, token, file,
//	    &downloader.LocalSink{Dir: "downloads", Status: os.Stderr},
//	    downloader.Options{Progress: reporter.Report})
//
// # Sinks
//
// LocalSink writes to a directory, creating it and its parents if needed,
// and overwrites an existing file of the same name. A failed transfer leaves
// the partially written file in place.
//
// BucketSink writes to any gocloud.dev blob bucket. A failed transfer
// cancels the upload.
//
// # Errors
//
// A response without Content-Length fails with ErrNoContentLength before
// anything is created. Filesystem and bucket failures match ErrStorage.
package downloader
