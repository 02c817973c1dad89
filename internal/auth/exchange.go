package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	gdhttp "github.com/ligustah/gdown/internal/http"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorURI         string `json:"error_uri"`
}

// Exchange trades a signed assertion for an access token at tokenURL.
// The token expiry is computed from the declared lifetime relative to now.
func Exchange(ctx context.Context, client *gdhttp.Client, tokenURL, assertion string, now time.Time) (*oauth2.Token, error) {
	form := url.Values{
		"grant_type": {GrantTypeJWTBearer},
		"assertion":  {assertion},
	}

	resp, err := client.PostForm(ctx, tokenURL, form)
	if err != nil {
		var se *gdhttp.StatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("%w: %w", ErrAuthentication, retrieveError(se))
		}
		return nil, fmt.Errorf("%w: token request: %w", ErrAuthentication, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read token response: %v", ErrAuthentication, err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: parse token response: %v", ErrAuthentication, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response has no access_token", ErrAuthentication)
	}

	token := &oauth2.Token{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
	}
	if tr.ExpiresIn > 0 {
		token.Expiry = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return token, nil
}

// retrieveError converts a rejected token request into the oauth2 error type,
// picking up the RFC 6749 error fields when the body carries them.
func retrieveError(se *gdhttp.StatusError) *oauth2.RetrieveError {
	re := &oauth2.RetrieveError{
		Response: &http.Response{
			StatusCode: se.StatusCode,
			Status:     fmt.Sprintf("%d %s", se.StatusCode, http.StatusText(se.StatusCode)),
		},
		Body: se.Body,
	}

	var er errorResponse
	if json.Unmarshal(se.Body, &er) == nil {
		re.ErrorCode = er.Error
		re.ErrorDescription = er.ErrorDescription
		re.ErrorURI = er.ErrorURI
	}
	return re
}
