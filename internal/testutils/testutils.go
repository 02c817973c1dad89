// Package testutils provides a fake files API and shared helpers for tests.
package testutils

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"golang.org/x/oauth2/jws"
)

// GrantType is the grant type the fake token endpoint accepts.
const GrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// TestFile is a file served by FakeDrive.
type TestFile struct {
	ID       string
	Name     string
	MimeType string
	Data     []byte

	// Chunked serves the content without a Content-Length header.
	Chunked bool
}

// GenerateTestData generates deterministic test data of the given size.
func GenerateTestData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 256)
	}
	return data
}

var (
	keyOnce sync.Once
	key     *rsa.PrivateKey
	keyErr  error
)

// RSAKey returns a process-wide 2048-bit test key.
func RSAKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		key, keyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	if keyErr != nil {
		t.Fatalf("generate key: %v", keyErr)
	}
	return key
}

// FakeDrive serves a token endpoint and a files collection.
type FakeDrive struct {
	Server *httptest.Server

	// AccessToken is issued by the token endpoint and required by the
	// files endpoints.
	AccessToken string

	ClientEmail string
	Key         *rsa.PrivateKey

	files         map[string]TestFile
	tokenRequests atomic.Int32
	mediaRequests atomic.Int32
}

// StartFakeDrive starts a fake API serving files. The server is closed
// when the test ends.
func StartFakeDrive(t testing.TB, files ...TestFile) *FakeDrive {
	t.Helper()

	d := &FakeDrive{
		AccessToken: "ya29.fake-token",
		ClientEmail: "robot@fake-project.iam.gserviceaccount.com",
		Key:         RSAKey(t),
		files:       make(map[string]TestFile),
	}
	for _, f := range files {
		d.files[f.ID] = f
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", d.handleToken)
	mux.HandleFunc("GET /drive/v3/files/{id}", d.handleFile)
	d.Server = httptest.NewServer(mux)
	t.Cleanup(d.Server.Close)
	return d
}

// TokenURL is the token endpoint.
func (d *FakeDrive) TokenURL() string { return d.Server.URL + "/token" }

// FilesURL is the files collection base URL.
func (d *FakeDrive) FilesURL() string { return d.Server.URL + "/drive/v3/files" }

// TokenRequests returns how many token exchanges were made.
func (d *FakeDrive) TokenRequests() int { return int(d.tokenRequests.Load()) }

// MediaRequests returns how many content downloads were requested.
func (d *FakeDrive) MediaRequests() int { return int(d.mediaRequests.Load()) }

// CredentialsJSON returns a service-account key file for this server.
func (d *FakeDrive) CredentialsJSON(t testing.TB) []byte {
	t.Helper()

	der, err := x509.MarshalPKCS8PrivateKey(d.Key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	data, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"private_key_id": "fake-kid",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email":   d.ClientEmail,
		"token_uri":      d.TokenURL(),
	})
	if err != nil {
		t.Fatalf("marshal credentials: %v", err)
	}
	return data
}

// WriteCredentials writes CredentialsJSON to path.
func (d *FakeDrive) WriteCredentials(t testing.TB, path string) {
	t.Helper()
	if err := os.WriteFile(path, d.CredentialsJSON(t), 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
}

func (d *FakeDrive) handleToken(w http.ResponseWriter, r *http.Request) {
	d.tokenRequests.Add(1)

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	if r.PostForm.Get("grant_type") != GrantType {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	assertion := r.PostForm.Get("assertion")
	if err := jws.Verify(assertion, &d.Key.PublicKey); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid JWT Signature.",
		})
		return
	}
	claims, err := jws.Decode(assertion)
	if err != nil || claims.Iss != d.ClientEmail || claims.Aud != d.TokenURL() || claims.Exp-claims.Iat != 3600 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": d.AccessToken,
		"expires_in":   3599,
		"token_type":   "Bearer",
	})
}

func (d *FakeDrive) handleFile(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+d.AccessToken {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"code": 401, "message": "Invalid Credentials"},
		})
		return
	}

	f, ok := d.files[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{"code": 404, "message": "File not found"},
		})
		return
	}

	if r.URL.Query().Get("alt") == "media" {
		d.mediaRequests.Add(1)
		serveContent(w, f)
		return
	}

	meta := map[string]string{
		"id":       f.ID,
		"name":     f.Name,
		"mimeType": f.MimeType,
		"size":     strconv.Itoa(len(f.Data)),
	}
	if fields := r.URL.Query().Get("fields"); fields != "" {
		for k := range meta {
			if !strings.Contains(fields, k) {
				delete(meta, k)
			}
		}
	}
	writeJSON(w, http.StatusOK, meta)
}

func serveContent(w http.ResponseWriter, f TestFile) {
	w.Header().Set("Content-Type", f.MimeType)
	if !f.Chunked {
		w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
		w.Write(f.Data)
		return
	}

	// Flushing before the handler returns forces chunked encoding.
	half := len(f.Data) / 2
	w.Write(f.Data[:half])
	if fl, ok := w.(http.Flusher); ok {
		fl.Flush()
	}
	w.Write(f.Data[half:])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Fprintf(w, `{"error":%q}`, err.Error())
	}
}
