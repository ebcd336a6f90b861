// Package ingest fetches current-weather observations for every configured city and
// persists the raw provider responses, untouched, into the raw area.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tigerroll/weatherpipe/internal/config"
	"github.com/tigerroll/weatherpipe/internal/support/exception"
)

const moduleName = "ingest"

// Client calls the weather provider's current-conditions endpoint.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewClient creates a provider client from the API configuration.
func NewClient(cfg config.APIConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.Key,
		client:   &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

// FetchCurrent fetches the current conditions for one city and returns the raw
// response body. The body is not parsed here: the raw area stores exactly what the
// provider sent.
func (c *Client) FetchCurrent(ctx context.Context, city config.CityConfig) ([]byte, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", fmt.Sprintf("%f,%f", city.Latitude, city.Longitude))
	requestURL := c.endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, exception.NewBatchError(moduleName,
			fmt.Sprintf("failed to create API request for city '%s'", city.Name), err, false, false)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, exception.NewBatchError(moduleName,
			fmt.Sprintf("API call failed for city '%s'", city.Name), err, true, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		bodyString := strings.TrimSpace(string(bodyBytes))
		isRetryable := resp.StatusCode >= 500
		return nil, exception.NewBatchError(moduleName,
			fmt.Sprintf("error response from API for city '%s': status code %d, body: %s", city.Name, resp.StatusCode, bodyString),
			errors.New(bodyString), true, isRetryable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, exception.NewBatchError(moduleName,
			fmt.Sprintf("failed to read API response for city '%s'", city.Name), err, true, true)
	}
	return body, nil
}
