package dexapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"paperTrader/internal/ports"
)

const defaultTimeout = 10 * time.Second

// Client implements ports.PriceSource against the price-routing provider's
// HTTP API. The provider quotes tokens by their on-chain address.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     ports.Logger
}

// Config holds configuration specific to the price API client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  ports.Logger
}

// New creates a new price API client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for price API client")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: price API base URL must be set", ports.ErrConfigurationError)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}, nil
}

// priceResponse mirrors the provider's quote document:
// {"data":{"<address>":{"id":"<address>","price":"0.00123"}}}
type priceResponse struct {
	Data map[string]struct {
		ID    string `json:"id"`
		Price string `json:"price"`
	} `json:"data"`
}

// GetPrice fetches the current price for a token address. Rate limits,
// provider outages and unknown tokens all surface as ErrPriceUnavailable so
// the caller can skip the refresh cycle without treating it as a failure.
func (c *Client) GetPrice(ctx context.Context, assetAddress string) (float64, error) {
	endpoint := fmt.Sprintf("%s/price?ids=%s", c.baseURL, url.QueryEscape(assetAddress))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "Price request failed", map[string]interface{}{"asset": assetAddress, "error": err.Error()})
		return 0, fmt.Errorf("%w: %v", ports.ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.Warn(ctx, "Price provider rate limited", map[string]interface{}{"asset": assetAddress})
		return 0, fmt.Errorf("%w: rate limited", ports.ErrPriceUnavailable)
	case resp.StatusCode == http.StatusNotFound:
		return 0, fmt.Errorf("%w: unknown token", ports.ErrPriceUnavailable)
	default:
		c.logger.Warn(ctx, "Price provider returned unexpected status", map[string]interface{}{
			"asset": assetAddress, "status": resp.StatusCode,
		})
		return 0, fmt.Errorf("%w: status %d", ports.ErrPriceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ports.ErrPriceUnavailable, err)
	}

	var parsed priceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("%w: malformed quote document: %v", ports.ErrPriceUnavailable, err)
	}

	quote, ok := parsed.Data[assetAddress]
	if !ok || quote.Price == "" {
		return 0, fmt.Errorf("%w: no quote in response", ports.ErrPriceUnavailable)
	}
	price, err := strconv.ParseFloat(quote.Price, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("%w: unparseable quote %q", ports.ErrPriceUnavailable, quote.Price)
	}
	return price, nil
}

// Compile-time interface check.
var _ ports.PriceSource = (*Client)(nil)
