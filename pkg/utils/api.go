package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnexpectedStatus is wrapped by every error caused by a non-2xx response.
var ErrUnexpectedStatus = errors.New("unexpected status")

type API struct {
	client   *http.Client
	baseURL  string
	username string
	password string
	limiter  *rate.Limiter
}

type APIOption func(*API)

// WithBasicAuth sends credentials with every request.
func WithBasicAuth(username, password string) APIOption {
	return func(a *API) {
		a.username = username
		a.password = password
	}
}

// WithRateLimit caps the request rate. Zero or negative means unlimited.
func WithRateLimit(perSecond float64) APIOption {
	return func(a *API) {
		if perSecond > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func WithTimeout(timeout time.Duration) APIOption {
	return func(a *API) {
		a.client = &http.Client{Timeout: timeout}
	}
}

func WithHTTPClient(client *http.Client) APIOption {
	return func(a *API) {
		a.client = client
	}
}

func NewAPI(baseURL string, opts ...APIOption) *API {
	a := &API{client: http.DefaultClient, baseURL: strings.TrimRight(baseURL, "/")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Get decodes the JSON body of path into v.
func (a *API) Get(ctx context.Context, path string, params url.Values, v any) error {
	if params != nil {
		path += "?" + params.Encode()
	}
	resp, err := a.do(ctx, path, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Download reads the body of path, reporting progress as bytes arrive. total
// is the Content-Length, or -1 when the server did not send one.
func (a *API) Download(ctx context.Context, path string, onProgress func(received, total int64)) ([]byte, string, error) {
	resp, err := a.do(ctx, path, "image/*")
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if onProgress != nil {
		body = &progressReader{r: resp.Body, total: resp.ContentLength, onProgress: onProgress}
	}

	content, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return content, resp.Header.Get("Content-Type"), nil
}

func (a *API) do(ctx context.Context, path, accept string) (*http.Response, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	if a.username != "" || a.password != "" {
		req.SetBasicAuth(a.username, a.password)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %w: %s", path, ErrUnexpectedStatus, resp.Status)
	}
	return resp, nil
}

type progressReader struct {
	r          io.Reader
	received   int64
	total      int64
	onProgress func(received, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.received += int64(n)
		p.onProgress(p.received, p.total)
	}
	return n, err
}
