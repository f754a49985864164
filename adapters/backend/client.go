package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"basketboard/internal/errors"
)

// Client wraps every outbound call to the analytics backend. It attaches
// the bearer credential supplied by the token source, decodes success
// payloads, and normalizes every failure into the internal error
// taxonomy. A 401 on an authenticated call is treated as session expiry:
// the configured hook fires (tearing down the session) and the caller
// gets a distinct SESSION_EXPIRED error.
type Client struct {
	baseURL string
	http    *http.Client

	tokenSource      func() string
	onSessionExpired func()
}

// NewClient creates a backend client for the given base URL, e.g.
// "http://127.0.0.1:5000/api". A zero timeout leaves calls unbounded.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetTokenSource registers the function consulted for the current bearer
// token before every request. An empty return means no Authorization
// header is attached.
func (c *Client) SetTokenSource(fn func() string) {
	c.tokenSource = fn
}

// OnSessionExpired registers the hook fired when any authenticated call
// comes back 401.
func (c *Client) OnSessionExpired(fn func()) {
	c.onSessionExpired = fn
}

// serverMessage is the error envelope the backend uses for all failures.
type serverMessage struct {
	Message string `json:"message"`
}

// postJSON issues a JSON POST and decodes the response into out (out may
// be nil for calls whose body is ignored).
func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, fallback string, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, fallback, out)
}

// getJSON issues a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path, fallback string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	return c.do(req, fallback, out)
}

// postMultipart issues a multipart upload. Each file is attached under
// the "files" field; a single file also fills the legacy "file" field the
// backend accepts.
func (c *Client) postMultipart(ctx context.Context, path string, files []UploadFile, fallback string, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for i, f := range files {
		field := "files"
		if len(files) == 1 {
			field = "file"
		}
		part, err := w.CreateFormFile(field, f.Name)
		if err != nil {
			return errors.Wrapf(err, "failed to attach file %d", i)
		}
		if _, err := part.Write(f.Data); err != nil {
			return errors.Wrapf(err, "failed to write file %d", i)
		}
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "failed to finalize upload body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.do(req, fallback, out)
}

// getRaw issues a GET and returns the raw response body, for CSV blobs.
func (c *Client) getRaw(ctx context.Context, path, fallback string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	c.attachAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.NetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.errorFromResponse(resp, fallback)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) attachAuth(req *http.Request) {
	if c.tokenSource == nil {
		return
	}
	if token := c.tokenSource(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) do(req *http.Request, fallback string, out interface{}) error {
	c.attachAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.NetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.errorFromResponse(resp, fallback)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.DataShape(fmt.Sprintf("backend sent an unreadable response for %s", req.URL.Path))
	}
	return nil
}

// errorFromResponse turns a non-2xx response into a normalized error.
// The server's own message is preferred; fallback covers a silent server.
func (c *Client) errorFromResponse(resp *http.Response, fallback string) error {
	var msg serverMessage
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	json.Unmarshal(raw, &msg)

	// A 401 only means "session expired" on a call that actually carried
	// the credential; on login it is just bad credentials.
	if resp.StatusCode == http.StatusUnauthorized {
		if resp.Request.Header.Get("Authorization") != "" {
			log.Printf("[Backend] 401 from %s, expiring session", resp.Request.URL.Path)
			if c.onSessionExpired != nil {
				c.onSessionExpired()
			}
			return errors.SessionExpired()
		}
		return errors.AuthError(firstNonEmpty(msg.Message, fallback))
	}

	return errors.ServerError(resp.StatusCode, msg.Message, fallback)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
