package utils

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/kerbaras/pocketepub/pkg/errs"
)

// DefaultUserAgent is a desktop browser identity; the remote service rejects
// default client identifiers.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:130.0) Gecko/20100101 Firefox/130.0"

type API struct {
	client    *http.Client
	userAgent string
}

func NewAPI(userAgent string, timeout time.Duration) *API {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &API{client: &http.Client{Timeout: timeout}, userAgent: userAgent}
}

// NewAPIWithClient wraps an existing client, mostly for tests.
func NewAPIWithClient(client *http.Client, userAgent string) *API {
	a := NewAPI(userAgent, 0)
	if client != nil {
		a.client = client
	}
	return a
}

func (a *API) UserAgent() string {
	return a.userAgent
}

// Open issues a GET for rawURL and returns the body of a 2xx response.
// The caller closes the body. Non-2xx responses fail with
// *errs.HTTPStatusError; transport failures are tagged errs.ErrNetwork.
func (a *API) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrNetwork, "build request", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ErrNetwork, "GET "+rawURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &errs.HTTPStatusError{URL: rawURL, Code: resp.StatusCode}
	}

	return resp.Body, nil
}

// Get reads the whole body of rawURL.
func (a *API) Get(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := a.Open(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrNetwork, "read "+rawURL, err)
	}
	return data, nil
}
