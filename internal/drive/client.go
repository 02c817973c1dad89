package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/oauth2"

	gdhttp "github.com/ligustah/gdown/internal/http"
)

var log = logging.Logger("gdown/drive")

// DefaultBaseURL is the files collection of the Drive v3 API.
const DefaultBaseURL = "https://www.googleapis.com/drive/v3/files"

// MetadataFields is the field mask requested for file metadata.
const MetadataFields = "id,name,mimeType,size"

// maxMetadataSize bounds the metadata body read into memory.
const maxMetadataSize = 1 << 20

// Client fetches file metadata and content. The token is passed with every
// call; the client holds no credentials.
type Client struct {
	http    *gdhttp.Client
	baseURL string
}

// NewClient returns a client for the files collection at baseURL.
// An empty baseURL selects DefaultBaseURL.
func NewClient(hc *gdhttp.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FileURL returns the resource URL for id.
func (c *Client) FileURL(id string) string {
	return c.baseURL + "/" + url.PathEscape(id)
}

// GetFile fetches the metadata of file id.
func (c *Client) GetFile(ctx context.Context, token *oauth2.Token, id string) (*File, error) {
	if id == "" {
		return nil, errors.New("drive: empty file id")
	}

	resp, err := c.http.Get(ctx, c.FileURL(id), url.Values{"fields": {MetadataFields}}, token)
	if err != nil {
		return nil, classify("get file metadata", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataSize))
	if err != nil {
		return nil, fmt.Errorf("get file metadata: read body: %w", err)
	}

	f, err := ParseFile(data)
	if err != nil {
		log.Debugw("unexpected metadata body", "id", id, "bytes", len(data))
		return nil, err
	}
	log.Debugw("fetched metadata", "id", f.ID, "name", f.Name, "size", f.Size)
	return f, nil
}

// OpenMedia requests the raw content of file id. The caller must close the
// response body.
func (c *Client) OpenMedia(ctx context.Context, token *oauth2.Token, id string) (*gdhttp.Response, error) {
	if id == "" {
		return nil, errors.New("drive: empty file id")
	}

	resp, err := c.http.Get(ctx, c.FileURL(id), url.Values{"alt": {"media"}}, token)
	if err != nil {
		return nil, classify("download request", err)
	}
	log.Debugw("media response", "id", id, "content_length", resp.ContentLength)
	return resp, nil
}

// classify tags 401 and 403 responses as authorization failures.
func classify(op string, err error) error {
	if errors.Is(err, gdhttp.ErrUnauthorized) || errors.Is(err, gdhttp.ErrForbidden) {
		return fmt.Errorf("%s: %w: %w", op, ErrAuthorization, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
