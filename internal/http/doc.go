// Package http provides the HTTP client used for token exchange, metadata
// lookups and streamed media downloads.
//
// This package handles:
//   - Bearer authorization via oauth2.Token
//   - Form-encoded POST for token exchange
//   - Classification of non-success responses into sentinel errors
//
// Requests are never retried.
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	resp, err := client.Get(ctx, fileURL, url.Values{"alt": {"media"}}, token)
//	if errors.Is(err, http.ErrUnauthorized) {
//	    // token expired or revoked
//	}
//	defer resp.Body.Close()
package http
