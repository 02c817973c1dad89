package auth

import (
	"crypto/rsa"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2/jws"
)

// GrantTypeJWTBearer is the grant type for exchanging a signed assertion.
const GrantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// AssertionLifetime is the validity window of a signed assertion.
const AssertionLifetime = time.Hour

// NewClaimSet builds the assertion claims for sa, issued at now.
// The audience is the account's token endpoint.
func NewClaimSet(sa *ServiceAccount, scopes []string, now time.Time) *jws.ClaimSet {
	iat := now.Unix()
	return &jws.ClaimSet{
		Iss:   sa.ClientEmail,
		Scope: strings.Join(scopes, " "),
		Aud:   sa.TokenURI,
		Iat:   iat,
		Exp:   iat + int64(AssertionLifetime/time.Second),
	}
}

// SignAssertion signs claims with key using RS256.
func SignAssertion(claims *jws.ClaimSet, key *rsa.PrivateKey, keyID string) (string, error) {
	header := &jws.Header{
		Algorithm: "RS256",
		Typ:       "JWT",
		KeyID:     keyID,
	}

	assertion, err := jws.Encode(header, claims, key)
	if err != nil {
		return "", fmt.Errorf("%w: sign assertion: %v", ErrCrypto, err)
	}
	return assertion, nil
}
