package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"paperTrader/internal/domain"
	"paperTrader/internal/ledger"
	"paperTrader/internal/ports"
)

// Broadcaster pushes dashboard events to connected clients. The WebSocket hub
// implements it; a nil broadcaster disables pushes.
type Broadcaster interface {
	Broadcast(eventType string, data interface{})
}

// SummaryView is the aggregate report served to the dashboard. QuoteUSD is
// the USD reference price of the quote currency; it is 0 when the market-data
// provider is unavailable or not configured.
type SummaryView struct {
	ledger.Summary
	QuoteSymbol string  `json:"quoteSymbol,omitempty"`
	QuoteUSD    float64 `json:"quoteUsd,omitempty"`
}

// Config holds parameters for the dashboard service.
type Config struct {
	RefreshInterval time.Duration // Price refresh cadence (e.g. 30s)
	QuoteSymbol     string        // Ticker symbol for USD conversion; empty disables
}

// DashboardService is the command surface exposed to the presentation layer.
// It owns the refresh driver that feeds fresh prices into the ledger.
type DashboardService struct {
	cfg    Config
	logger ports.Logger
	ledger *ledger.Ledger
	prices ports.PriceSource
	quote  ports.QuoteTicker // optional
	hub    Broadcaster       // optional

	// refreshMu serializes refresh cycles; an in-flight cycle causes the
	// next tick to be skipped rather than queued.
	refreshMu sync.Mutex
}

// NewDashboardService creates the application service.
func NewDashboardService(cfg Config, logger ports.Logger, lgr *ledger.Ledger, prices ports.PriceSource, quote ports.QuoteTicker, hub Broadcaster) (*DashboardService, error) {
	if logger == nil || lgr == nil || prices == nil {
		return nil, fmt.Errorf("missing required dependencies for DashboardService")
	}
	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("configuration RefreshInterval must be positive")
	}
	return &DashboardService{
		cfg:    cfg,
		logger: logger,
		ledger: lgr,
		prices: prices,
		quote:  quote,
		hub:    hub,
	}, nil
}

// Start runs the periodic refresh driver until the context is cancelled.
func (s *DashboardService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Refresh driver started", map[string]interface{}{
		"interval": s.cfg.RefreshInterval.String(),
	})

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Refresh driver stopped")
			return nil
		case <-ticker.C:
			if !s.refreshMu.TryLock() {
				s.logger.Warn(ctx, "Previous refresh cycle still running, skipping tick")
				continue
			}
			go func() {
				defer s.refreshMu.Unlock()
				s.RefreshAll(ctx)
			}()
		}
	}
}

// RefreshAll fetches a fresh price for every active position and feeds it
// into the ledger. Unavailable prices skip the asset for this cycle and leave
// its last observed price untouched.
func (s *DashboardService) RefreshAll(ctx context.Context) {
	active := s.ledger.ListActive()
	if len(active) == 0 {
		return
	}

	updated := 0
	for _, pos := range active {
		price, err := s.prices.GetPrice(ctx, pos.AssetAddress)
		if err != nil {
			if errors.Is(err, ports.ErrPriceUnavailable) {
				s.logger.Debug(ctx, "Price unavailable, skipping asset this cycle", map[string]interface{}{
					"asset": pos.AssetAddress,
				})
			} else {
				s.logger.Error(ctx, err, "Price fetch failed", map[string]interface{}{"asset": pos.AssetAddress})
			}
			continue
		}

		if err := s.ledger.RefreshPrice(ctx, pos.AssetAddress, price); err != nil {
			// The position may have closed mid-cycle via a user command.
			if errors.Is(err, ports.ErrPositionNotFound) {
				continue
			}
			s.logger.Error(ctx, err, "Price refresh failed", map[string]interface{}{"asset": pos.AssetAddress})
			continue
		}
		updated++
	}

	s.logger.Debug(ctx, "Refresh cycle completed", map[string]interface{}{
		"positions": len(active), "updated": updated,
	})
	if updated > 0 {
		s.publish(ctx)
	}
}

// Open buys into an asset, creating or averaging a position.
func (s *DashboardService) Open(ctx context.Context, assetAddress, symbol, name string, quantity, price float64) (*domain.Position, error) {
	pos, err := s.ledger.OpenOrAdd(ctx, assetAddress, symbol, name, quantity, price)
	if err != nil {
		return nil, err
	}
	s.publish(ctx)
	return pos, nil
}

// Close exits the full remaining quantity of an active position at the
// freshest price available: the price source is consulted first, and the last
// observed price is used when the source has no quote.
func (s *DashboardService) Close(ctx context.Context, assetAddress string) (float64, error) {
	pos := s.findActive(assetAddress)
	if pos == nil {
		return 0, ports.ErrPositionNotFound
	}

	price := pos.CurrentPrice
	if fresh, err := s.prices.GetPrice(ctx, assetAddress); err == nil {
		price = fresh
	} else if !errors.Is(err, ports.ErrPriceUnavailable) {
		s.logger.Warn(ctx, "Price fetch failed on close, using last observed price", map[string]interface{}{
			"asset": assetAddress, "error": err.Error(),
		})
	}

	realized, err := s.ledger.CloseManually(ctx, assetAddress, price)
	if err != nil {
		return 0, err
	}
	s.publish(ctx)
	return realized, nil
}

// GetSummary derives the aggregate dashboard report.
func (s *DashboardService) GetSummary(ctx context.Context) SummaryView {
	view := SummaryView{Summary: s.ledger.Summary()}
	if s.quote == nil || s.cfg.QuoteSymbol == "" {
		return view
	}

	view.QuoteSymbol = s.cfg.QuoteSymbol
	usd, err := s.quote.GetQuotePrice(ctx, s.cfg.QuoteSymbol)
	if err != nil {
		// Display concern only; the summary is still served.
		s.logger.Debug(ctx, "Quote reference price unavailable", map[string]interface{}{
			"symbol": s.cfg.QuoteSymbol, "error": err.Error(),
		})
		return view
	}
	view.QuoteUSD = usd
	return view
}

// GetActivePositions returns a read-only snapshot of active positions.
func (s *DashboardService) GetActivePositions() []*domain.Position {
	return s.ledger.ListActive()
}

// GetClosedPositions returns a read-only snapshot of closed positions.
func (s *DashboardService) GetClosedPositions() []*domain.Position {
	return s.ledger.ListClosed()
}

func (s *DashboardService) findActive(assetAddress string) *domain.Position {
	for _, pos := range s.ledger.ListActive() {
		if pos.AssetAddress == assetAddress {
			return pos
		}
	}
	return nil
}

// publish pushes fresh snapshots to dashboard clients after a state change.
func (s *DashboardService) publish(ctx context.Context) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast("positions", s.ledger.ListActive())
	s.hub.Broadcast("summary", s.GetSummary(ctx))
}
