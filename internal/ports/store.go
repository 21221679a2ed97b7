package ports

import "context"

// StateStore is the durable persistence surface for the position ledger.
// The ledger serializes its full state (active and closed positions) into a
// single document and writes it atomically; Load returns the latest document
// or nil when nothing has been saved yet.
type StateStore interface {
	Save(ctx context.Context, state []byte) error
	Load(ctx context.Context) ([]byte, error)
	Close() error
}
