package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jws"

	gdhttp "github.com/ligustah/gdown/internal/http"
)

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

func rsaKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

func pkcs8PEM(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func serviceAccountJSON(t *testing.T, tokenURI string) []byte {
	t.Helper()
	data, err := json.Marshal(ServiceAccount{
		Type:         "service_account",
		PrivateKeyID: "kid-1",
		PrivateKey:   pkcs8PEM(t, rsaKey(t)),
		ClientEmail:  "robot@example.iam.gserviceaccount.com",
		TokenURI:     tokenURI,
	})
	require.NoError(t, err)
	return data
}

func TestParseServiceAccountMissingFields(t *testing.T) {
	_, err := ParseServiceAccount([]byte(`{"client_email":"a@b"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "private_key")
	assert.Contains(t, err.Error(), "token_uri")
}

func TestParseServiceAccountMalformed(t *testing.T) {
	_, err := ParseServiceAccount([]byte(`{not json`))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestLoadServiceAccountFileMissing(t *testing.T) {
	_, err := LoadServiceAccountFile(filepath.Join(t.TempDir(), "credentials.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "credentials.json")
}

func TestRSAKeyPKCS1(t *testing.T) {
	key := rsaKey(t)
	sa := &ServiceAccount{PrivateKey: string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))}

	got, err := sa.RSAKey()
	require.NoError(t, err)
	assert.True(t, key.Equal(got))
}

func TestRSAKeyInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"not pem", "hello"},
		{"garbage der", string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte("nope")}))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&ServiceAccount{PrivateKey: tt.key}).RSAKey()
			assert.ErrorIs(t, err, ErrCrypto)
		})
	}
}

func TestClaimSetLifetime(t *testing.T) {
	sa := &ServiceAccount{ClientEmail: "robot@example.com", TokenURI: "https://oauth2.example.com/token"}
	for _, now := range []time.Time{
		time.Unix(0, 0),
		time.Unix(1328550785, 0),
		time.Unix(1700000000, 999999999),
		time.Now(),
	} {
		claims := NewClaimSet(sa, DefaultScopes, now)
		assert.Equal(t, now.Unix(), claims.Iat)
		assert.Equal(t, claims.Iat+3600, claims.Exp)
		assert.Equal(t, sa.TokenURI, claims.Aud)
		assert.Equal(t, sa.ClientEmail, claims.Iss)
		assert.Equal(t,
			"https://www.googleapis.com/auth/drive.metadata.readonly https://www.googleapis.com/auth/drive.readonly",
			claims.Scope)
	}
}

func TestSignAssertionVerifies(t *testing.T) {
	key := rsaKey(t)
	sa := &ServiceAccount{ClientEmail: "robot@example.com", TokenURI: "https://oauth2.example.com/token"}
	now := time.Unix(1700000000, 0)

	assertion, err := SignAssertion(NewClaimSet(sa, []string{"a", "b"}, now), key, "kid-1")
	require.NoError(t, err)
	require.NoError(t, jws.Verify(assertion, &key.PublicKey))

	claims, err := jws.Decode(assertion)
	require.NoError(t, err)
	assert.Equal(t, "a b", claims.Scope)
	assert.Equal(t, int64(1700000000), claims.Iat)
	assert.Equal(t, int64(1700003600), claims.Exp)
}

func tokenServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestServiceAccountSourceToken(t *testing.T) {
	key := rsaKey(t)
	now := time.Unix(1700000000, 0)

	var server *httptest.Server
	server = tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, GrantTypeJWTBearer, r.PostForm.Get("grant_type"))

		assertion := r.PostForm.Get("assertion")
		assert.NoError(t, jws.Verify(assertion, &key.PublicKey))
		claims, err := jws.Decode(assertion)
		require.NoError(t, err)
		assert.Equal(t, server.URL+"/token", claims.Aud)
		assert.Equal(t, claims.Iat+3600, claims.Exp)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"ya29.token","expires_in":3599,"token_type":"Bearer"}`))
	})

	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, serviceAccountJSON(t, server.URL+"/token"), 0600))

	src, err := NewSource(Options{
		Mode:            ModeServiceAccount,
		CredentialsFile: path,
		Client:          gdhttp.NewClient(gdhttp.DefaultOptions()),
		Now:             func() time.Time { return now },
		LookupEnv:       func(string) (string, bool) { return "", false },
	})
	require.NoError(t, err)

	token, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ya29.token", token.AccessToken)
	assert.Equal(t, "Bearer", token.Type())
	assert.Equal(t, now.Add(3599*time.Second), token.Expiry)
}

func TestServiceAccountFromEnv(t *testing.T) {
	server := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"from-env","expires_in":60,"token_type":"Bearer"}`))
	})
	env := map[string]string{"GDOWN_CREDENTIALS_JSON": string(serviceAccountJSON(t, server.URL))}

	src, err := NewSource(Options{
		Mode:            ModeServiceAccount,
		CredentialsFile: filepath.Join(t.TempDir(), "absent.json"),
		CredentialsEnv:  "GDOWN_CREDENTIALS_JSON",
		LookupEnv: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
	})
	require.NoError(t, err)

	token, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-env", token.AccessToken)
}

func TestExchangeRejected(t *testing.T) {
	server := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid JWT Signature."}`))
	})

	_, err := Exchange(context.Background(), gdhttp.NewClient(gdhttp.DefaultOptions()), server.URL, "a.b.c", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)

	var re *oauth2.RetrieveError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "invalid_grant", re.ErrorCode)
	assert.Equal(t, http.StatusBadRequest, re.Response.StatusCode)
}

func TestExchangeUnparseable(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"html", "<html>oops</html>"},
		{"no token", `{"token_type":"Bearer"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			_, err := Exchange(context.Background(), gdhttp.NewClient(gdhttp.DefaultOptions()), server.URL, "a.b.c", time.Now())
			assert.ErrorIs(t, err, ErrAuthentication)
		})
	}
}

func TestExchangeTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	_, err := Exchange(context.Background(), gdhttp.NewClient(gdhttp.DefaultOptions()), addr, "a.b.c", time.Now())
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.ErrorIs(t, err, gdhttp.ErrTransport)
}

func TestBadKeyFailsBeforeNetwork(t *testing.T) {
	called := false
	server := tokenServer(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	src := &ServiceAccountSource{
		Account: &ServiceAccount{PrivateKey: "bogus", ClientEmail: "a@b", TokenURI: server.URL},
		Scopes:  DefaultScopes,
		Client:  gdhttp.NewClient(gdhttp.DefaultOptions()),
		Now:     time.Now,
	}
	_, err := src.Token(context.Background())
	assert.ErrorIs(t, err, ErrCrypto)
	assert.False(t, called)
}

func TestEnvSource(t *testing.T) {
	env := map[string]string{"GDOWN_ACCESS_TOKEN": "pre-issued"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	src, err := NewSource(Options{Mode: ModeToken, TokenEnv: "GDOWN_ACCESS_TOKEN", LookupEnv: lookup})
	require.NoError(t, err)

	token, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pre-issued", token.AccessToken)
	assert.Equal(t, "Bearer", token.Type())
}

func TestEnvSourceMissing(t *testing.T) {
	_, err := NewSource(Options{
		Mode:      ModeToken,
		TokenEnv:  "GDOWN_ACCESS_TOKEN",
		LookupEnv: func(string) (string, bool) { return "", false },
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "GDOWN_ACCESS_TOKEN")
}

func TestUnknownMode(t *testing.T) {
	_, err := NewSource(Options{Mode: "kerberos"})
	assert.ErrorIs(t, err, ErrConfig)
}
