package osrs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"osrs-price-tracker/pkg/logging"
)

// DefaultBaseURL is the RuneScape Wiki real-time price API.
const DefaultBaseURL = "https://prices.runescape.wiki/api/v1/osrs"

// Client handles API communication with the RuneScape Wiki price API
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	logger     *logging.Logger
}

// NewClient creates a new price API client.
// userAgent is required by the RuneScape Wiki API.
func NewClient(userAgent string) *Client {
	return NewClientWith(userAgent, DefaultBaseURL, nil, nil)
}

// NewClientWith creates a client against a specific base URL.
// If limiter is nil, per-item timeseries calls are limited to 2 req/sec.
func NewClientWith(userAgent, baseURL string, limiter *rate.Limiter, logger *logging.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(500*time.Millisecond), 1)
	}
	if logger == nil {
		logger = logging.NewLogger("error", "json")
	}
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
		logger:     logger,
	}
}

// makeAPIRequest is the core HTTP request method
func (c *Client) makeAPIRequest(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	// Critical: User-Agent required by RuneScape Wiki API
	req.Header.Set("User-Agent", c.userAgent)

	// Add query parameters
	if params != nil {
		q := req.URL.Query()
		for k, v := range params {
			q.Add(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	c.logger.APICall(endpoint, "GET")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.APIError(endpoint, err, 0)
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("API returned status %d", resp.StatusCode)
		c.logger.APIError(endpoint, err, resp.StatusCode)
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return body, nil
}

// Mapping fetches item metadata (names, buy limits, icons, etc.)
func (c *Client) Mapping(ctx context.Context) ([]ItemMapping, error) {
	data, err := c.makeAPIRequest(ctx, "/mapping", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching item mapping: %w", err)
	}

	var mappings []ItemMapping
	if err := json.Unmarshal(data, &mappings); err != nil {
		return nil, fmt.Errorf("parsing item mapping response: %w", err)
	}

	return mappings, nil
}

// Latest fetches current prices for all items, or one item when itemID
// is non-nil.
func (c *Client) Latest(ctx context.Context, itemID *int) (*LatestResponse, error) {
	var params map[string]string
	if itemID != nil {
		params = map[string]string{"id": strconv.Itoa(*itemID)}
	}

	data, err := c.makeAPIRequest(ctx, "/latest", params)
	if err != nil {
		return nil, fmt.Errorf("fetching latest prices: %w", err)
	}

	var response LatestResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("parsing latest prices response: %w", err)
	}

	return &response, nil
}

// Volumes24h fetches the trailing-24h aggregate for all items.
func (c *Client) Volumes24h(ctx context.Context) (*VolumeResponse, error) {
	data, err := c.makeAPIRequest(ctx, "/24h", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching 24h volumes: %w", err)
	}

	var response VolumeResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("parsing 24h volumes response: %w", err)
	}

	return &response, nil
}

// Timeseries fetches historical price/volume buckets for one item.
// timestep must be one of: "5m", "1h", "6h", "24h". Calls are throttled
// through the client's rate limiter since row enrichment fans out one
// request per item.
func (c *Client) Timeseries(ctx context.Context, itemID int, timestep string) (*TimeseriesResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	params := map[string]string{
		"id":       strconv.Itoa(itemID),
		"timestep": timestep,
	}

	data, err := c.makeAPIRequest(ctx, "/timeseries", params)
	if err != nil {
		return nil, fmt.Errorf("fetching timeseries for item %d: %w", itemID, err)
	}

	var response TimeseriesResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("parsing timeseries response: %w", err)
	}

	return &response, nil
}
