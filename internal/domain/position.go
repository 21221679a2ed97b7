package domain

import "time"

// Position represents a simulated trading stake in a single token.
// Field names in the JSON tags define the persisted document format.
type Position struct {
	ID           string `json:"id"`           // ULID assigned at open
	AssetAddress string `json:"assetAddress"` // Opaque on-chain identifier; unique key among active positions
	AssetSymbol  string `json:"assetSymbol"`  // Display symbol, non-authoritative
	AssetName    string `json:"assetName"`    // Display name, non-authoritative

	EntryPrice   float64 `json:"entryPrice"`   // Quantity-weighted average cost basis per unit
	CurrentPrice float64 `json:"currentPrice"` // Last observed price
	ExitPrice    float64 `json:"exitPrice"`    // Price at final close (0 while active)

	Quantity    float64 `json:"quantity"`    // Units still held; >= 0
	TotalBought float64 `json:"totalBought"` // Cumulative units acquired across all buys

	InitialInvestment float64 `json:"initialInvestment"` // Quote-currency cost at open; fixed at creation
	RealizedPnL       float64 `json:"realizedPnL"`       // Accrued profit from completed exits
	RealizedProceeds  float64 `json:"realizedProceeds"`  // Accrued quote-currency proceeds from exits
	ROI               float64 `json:"roi"`               // Percent return stamped at close
	SecuredInitial    bool    `json:"securedInitial"`    // True once proceeds cover InitialInvestment

	ScaleOutHistory []ScaleOutEvent `json:"scaleOutHistory"` // Append-only staged exit records

	Status         PositionStatus `json:"status"`
	EntryTime      time.Time      `json:"entryTime"`
	ExitTime       time.Time      `json:"exitTime"`
	LastUpdateTime time.Time      `json:"lastUpdateTime"`
}

// ScaleOutEvent records one automatic staged exit.
type ScaleOutEvent struct {
	ID          string    `json:"id"`          // ULID
	Multiple    float64   `json:"multiple"`    // Profit multiple that triggered the stage
	Fraction    float64   `json:"fraction"`    // Fraction of TotalBought that was exited
	Quantity    float64   `json:"quantity"`    // Units exited
	PriceAtExit float64   `json:"priceAtExit"` // Price the slice was sold at
	Timestamp   time.Time `json:"timestamp"`
}

// IsActive reports whether the position still holds quantity.
func (p *Position) IsActive() bool {
	return p.Status == StatusActive
}

// Multiple returns the current profit multiple (CurrentPrice / EntryPrice).
// Returns 0 for a zero entry price so corrupt records cannot divide by zero.
func (p *Position) Multiple() float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return p.CurrentPrice / p.EntryPrice
}

// HasScaledOutAt reports whether the stage at the given multiple already fired.
func (p *Position) HasScaledOutAt(multiple float64) bool {
	for _, ev := range p.ScaleOutHistory {
		if ev.Multiple == multiple {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the position. The ledger hands out clones so
// callers can never mutate owned state.
func (p *Position) Clone() *Position {
	cp := *p
	if p.ScaleOutHistory != nil {
		cp.ScaleOutHistory = make([]ScaleOutEvent, len(p.ScaleOutHistory))
		copy(cp.ScaleOutHistory, p.ScaleOutHistory)
	}
	return &cp
}
