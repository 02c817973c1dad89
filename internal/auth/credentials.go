package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Error classes returned by this package. Use errors.Is to test for them.
var (
	// ErrConfig reports a missing or malformed credential source.
	ErrConfig = errors.New("auth: configuration error")

	// ErrCrypto reports unusable key material or a signing failure.
	ErrCrypto = errors.New("auth: cryptographic error")

	// ErrAuthentication reports a failed exchange with the token endpoint.
	ErrAuthentication = errors.New("auth: authentication failed")
)

// ServiceAccount is the subset of a service-account key file needed to
// request tokens.
type ServiceAccount struct {
	Type         string `json:"type"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	TokenURI     string `json:"token_uri"`
}

// LoadServiceAccountFile reads and parses a service-account key file.
func LoadServiceAccountFile(path string) (*ServiceAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read credentials file %s: %v", ErrConfig, path, err)
	}

	sa, err := ParseServiceAccount(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sa, nil
}

// ParseServiceAccount parses a service-account key from JSON and checks that
// the fields required for the JWT bearer flow are present.
func ParseServiceAccount(data []byte) (*ServiceAccount, error) {
	var sa ServiceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("%w: parse credentials: %v", ErrConfig, err)
	}

	var missing []string
	if sa.PrivateKey == "" {
		missing = append(missing, "private_key")
	}
	if sa.ClientEmail == "" {
		missing = append(missing, "client_email")
	}
	if sa.TokenURI == "" {
		missing = append(missing, "token_uri")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: credentials missing %s", ErrConfig, strings.Join(missing, ", "))
	}

	return &sa, nil
}

// RSAKey decodes the PEM-encoded private key. Both PKCS#8 and PKCS#1 encodings
// are accepted.
func (sa *ServiceAccount) RSAKey() (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(sa.PrivateKey))
	if block == nil {
		return nil, fmt.Errorf("%w: private_key is not PEM encoded", ErrCrypto)
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: private_key is %T, want RSA", ErrCrypto, key)
		}
		return rsaKey, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse private_key: %v", ErrCrypto, err)
	}
	return key, nil
}
