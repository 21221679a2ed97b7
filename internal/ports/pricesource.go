package ports

import "context"

// PriceSource supplies the current price for a tradable asset.
// Implementations must return ErrPriceUnavailable (possibly wrapped) when no
// price can be produced this cycle; callers treat that as a soft miss and
// leave the last observed price in place.
type PriceSource interface {
	GetPrice(ctx context.Context, assetAddress string) (float64, error)
}

// QuoteTicker provides the USD reference price of the quote currency the
// positions are denominated in (e.g. SOL). Used for display conversion only.
type QuoteTicker interface {
	GetQuotePrice(ctx context.Context, symbol string) (float64, error)
}
