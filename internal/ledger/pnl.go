package ledger

import "paperTrader/internal/domain"

// Summary aggregates profit statistics over a set of positions.
type Summary struct {
	ActiveCount     int     `json:"activeCount"`
	ClosedCount     int     `json:"closedCount"`
	TotalInvested   float64 `json:"totalInvested"`   // Cost basis of quantity still held
	TotalValue      float64 `json:"totalValue"`      // Held quantity at current prices
	TotalUnrealized float64 `json:"totalUnrealized"` // Sum of unrealized P&L on active positions
	TotalRealized   float64 `json:"totalRealized"`   // Sum of realized P&L, active and closed
	Winners         int     `json:"winners"`         // Active positions with positive unrealized return
	Losers          int     `json:"losers"`
}

// UnrealizedPnL is the profit implied by the current price on remaining quantity.
func UnrealizedPnL(p *domain.Position) float64 {
	return p.Quantity * (p.CurrentPrice - p.EntryPrice)
}

// UnrealizedPct is the percentage return implied by the current price.
// A zero entry price is guarded and reported as 0%: entry price is always
// positive by construction, but deserialized records may be corrupt.
func UnrealizedPct(p *domain.Position) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (p.CurrentPrice/p.EntryPrice - 1) * 100
}

// Summarize derives aggregate statistics from ledger snapshots. It is
// stateless and safe to call at any time.
func Summarize(active, closed []*domain.Position) Summary {
	var s Summary
	s.ActiveCount = len(active)
	s.ClosedCount = len(closed)

	for _, p := range active {
		s.TotalInvested += p.Quantity * p.EntryPrice
		s.TotalValue += p.Quantity * p.CurrentPrice
		s.TotalUnrealized += UnrealizedPnL(p)
		s.TotalRealized += p.RealizedPnL
		if UnrealizedPct(p) > 0 {
			s.Winners++
		} else {
			s.Losers++
		}
	}
	for _, p := range closed {
		s.TotalRealized += p.RealizedPnL
	}
	return s
}
