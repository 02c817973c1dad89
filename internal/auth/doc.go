// Package auth acquires the bearer token used for API requests.
//
// Two sources are supported:
//   - Service account: a key file (or JSON in an environment variable) is
//     used to sign a one-hour RS256 assertion, which is exchanged at the
//     account's token endpoint.
//   - Pre-issued token: the token is read from an environment variable.
//
// Tokens live in memory for one run. They are never cached or refreshed.
//
// # Errors
//
// Failures are classified as ErrConfig, ErrCrypto or ErrAuthentication.
// A rejected exchange additionally wraps an *oauth2.RetrieveError carrying
// the response body.
package auth
