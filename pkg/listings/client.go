// Package listings is a thin REST client for the property listings provider.
package listings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/homescout/leadgen/internal/model"
	"github.com/homescout/leadgen/internal/resilience"
)

const defaultBaseURL = "https://api.listings.example.com/v2"

// Filters narrows a location search. Zero values mean "no constraint".
type Filters struct {
	PriceMin    float64
	PriceMax    float64
	BedroomsMin int
	BedroomsMax int
	Limit       int
}

// Client searches the listings provider. An empty result set is not an
// error; transport and HTTP failures are.
type Client interface {
	Search(ctx context.Context, location string, filters Filters) ([]model.PropertyCandidate, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
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

// WithRateLimit sets the outbound requests-per-second budget.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a listings API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(5, 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// searchResponse is the provider's wire shape for GET /properties/search.
type searchResponse struct {
	Properties []propertyRecord `json:"properties"`
	Total      int              `json:"total"`
}

type propertyRecord struct {
	ID        string         `json:"id"`
	Address   string         `json:"address"`
	City      string         `json:"city"`
	State     string         `json:"state"`
	ZipCode   string         `json:"zip_code"`
	Latitude  *float64       `json:"latitude"`
	Longitude *float64       `json:"longitude"`
	Price     float64        `json:"price"`
	Bedrooms  int            `json:"bedrooms"`
	Bathrooms float64        `json:"bathrooms"`
	HasPool   *bool          `json:"has_pool"`
	PoolType  string         `json:"pool_type"`
	HasYard   *bool          `json:"has_backyard"`
	Surface   string         `json:"backyard_surface"`
	LotSqFt   int            `json:"lot_size_sqft"`
	Extra     map[string]any `json:"extra"`
}

func (c *httpClient) Search(ctx context.Context, location string, filters Filters) ([]model.PropertyCandidate, error) {
	if location == "" {
		return nil, eris.Wrap(model.ErrInvalidInput, "listings: location is required")
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("listings", "search")

	return resilience.DoVal(ctx, retryCfg, func(ctx context.Context) ([]model.PropertyCandidate, error) {
		return c.search(ctx, location, filters)
	})
}

func (c *httpClient) search(ctx context.Context, location string, filters Filters) ([]model.PropertyCandidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "listings: rate limit")
	}

	params := url.Values{"location": {location}}
	if filters.PriceMin > 0 {
		params.Set("price_min", strconv.FormatFloat(filters.PriceMin, 'f', 0, 64))
	}
	if filters.PriceMax > 0 {
		params.Set("price_max", strconv.FormatFloat(filters.PriceMax, 'f', 0, 64))
	}
	if filters.BedroomsMin > 0 {
		params.Set("beds_min", strconv.Itoa(filters.BedroomsMin))
	}
	if filters.BedroomsMax > 0 {
		params.Set("beds_max", strconv.Itoa(filters.BedroomsMax))
	}
	if filters.Limit > 0 {
		params.Set("limit", strconv.Itoa(filters.Limit))
	}

	reqURL := c.baseURL + "/properties/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "listings: build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "listings: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "listings: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("listings: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "listings: unmarshal response")
	}

	candidates := make([]model.PropertyCandidate, 0, len(sr.Properties))
	for _, p := range sr.Properties {
		candidates = append(candidates, toCandidate(p))
	}
	return candidates, nil
}

func toCandidate(p propertyRecord) model.PropertyCandidate {
	c := model.PropertyCandidate{
		ID:        p.ID,
		Address:   p.Address,
		City:      p.City,
		State:     p.State,
		ZipCode:   p.ZipCode,
		Price:     p.Price,
		Bedrooms:  p.Bedrooms,
		Bathrooms: p.Bathrooms,
		Attributes: model.ListingAttributes{
			HasPool:         p.HasPool,
			PoolType:        p.PoolType,
			HasBackyard:     p.HasYard,
			BackyardSurface: p.Surface,
			LotSizeSqFt:     p.LotSqFt,
		},
		Raw: p.Extra,
	}
	if p.ID == "" {
		c.ID = fmt.Sprintf("%s|%s", p.Address, p.ZipCode)
	}
	if p.Latitude != nil && p.Longitude != nil {
		c.Coordinates = &model.Coordinates{Latitude: *p.Latitude, Longitude: *p.Longitude}
	}
	return c
}
