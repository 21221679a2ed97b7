package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"paperTrader/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

// Client implements the ports.QuoteTicker interface using the go-binance
// library. It only reads public spot tickers; no API keys are required.
// The dashboard uses it to express quote-currency totals in USD.
type Client struct {
	spotClient *binance.Client
	logger     ports.Logger
}

// Config holds configuration specific to the Binance market-data adapter.
type Config struct {
	Logger ports.Logger
}

// New creates a new Binance market-data adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	return &Client{
		spotClient: binance.NewClient("", ""),
		logger:     cfg.Logger,
	}, nil
}

// GetQuotePrice retrieves the last traded price for a symbol (e.g. "SOLUSDT").
// Provider failures surface as ErrPriceUnavailable: the reference price is a
// display concern and must never fail a dashboard request.
func (c *Client) GetQuotePrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := c.spotClient.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, "GetQuotePrice")
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("%w: no ticker for symbol %s", ports.ErrPriceUnavailable, symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable ticker price %q", ports.ErrPriceUnavailable, prices[0].Price)
	}
	return price, nil
}

// handleError translates Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}
	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiCode"] = apiErr.Code
		c.logger.Warn(ctx, "Binance API error", fields)
		return fmt.Errorf("%w: binance API error %d", ports.ErrPriceUnavailable, apiErr.Code)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ports.ErrPriceUnavailable, err)
	}

	c.logger.Warn(ctx, "Binance request failed", fields)
	return fmt.Errorf("%w: %v", ports.ErrPriceUnavailable, err)
}

// Compile-time interface check.
var _ ports.QuoteTicker = (*Client)(nil)
