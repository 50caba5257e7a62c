// Package staticmap fetches satellite imagery for a coordinate pair via a
// static-maps HTTP API.
package staticmap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/homescout/leadgen/internal/resilience"
)

const (
	defaultBaseURL = "https://maps.googleapis.com/maps/api/staticmap"

	// Fixed capture parameters. Zoom 20 resolves individual backyard
	// features; 640x640 is the largest size the free tier serves.
	zoomLevel = 20
	imageSize = "640x640"
)

// ImageRef is a retrieved satellite image. URL reproduces the exact request
// (minus credentials) for audit trails; Data carries the raw bytes so vision
// providers can inline them base64.
type ImageRef struct {
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
	Data      []byte `json:"-"`
}

// Client fetches satellite imagery.
type Client interface {
	FetchSatelliteImage(ctx context.Context, lat, lon float64) (*ImageRef, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the static map endpoint.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a static-map client. The API key is validated at call
// time so construction never fails.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) FetchSatelliteImage(ctx context.Context, lat, lon float64) (*ImageRef, error) {
	if c.apiKey == "" {
		return nil, eris.New("staticmap: api key not configured")
	}

	center := fmt.Sprintf("%.6f,%.6f", lat, lon)
	params := url.Values{
		"center":  {center},
		"zoom":    {fmt.Sprintf("%d", zoomLevel)},
		"size":    {imageSize},
		"maptype": {"satellite"},
		"markers": {"color:red|" + center},
		"key":     {c.apiKey},
	}

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "staticmap: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "staticmap: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("staticmap: unexpected status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "staticmap: read image body")
	}

	mediaType := resp.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = "image/png"
	}

	// Strip the key from the audit URL.
	params.Del("key")
	return &ImageRef{
		URL:       c.baseURL + "?" + params.Encode(),
		MediaType: mediaType,
		Data:      data,
	}, nil
}
