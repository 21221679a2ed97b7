package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"paperTrader/internal/domain"
	"paperTrader/internal/ports"
)

// quantityEpsilon absorbs floating-point residue when deciding that a
// position's quantity has reached zero. Exact equality would leave dust
// positions that never close.
const quantityEpsilon = 1e-9

// Ledger owns the set of active and closed positions and enforces the
// cost-basis and quantity invariants. Every mutation is written ahead to the
// state store: the new state is computed on a copy, serialized and saved, and
// only committed to memory after the write succeeds. A failed write leaves
// queryable state exactly as it was.
type Ledger struct {
	store  ports.StateStore
	logger ports.Logger
	stages []ScaleOutStage
	now    func() time.Time

	mu     sync.Mutex
	active map[string]*domain.Position
	closed []*domain.Position
}

// Config holds dependencies for the Ledger.
type Config struct {
	Store  ports.StateStore
	Logger ports.Logger
	Stages []ScaleOutStage  // nil selects DefaultScaleOutStages
	Now    func() time.Time // nil selects time.Now (UTC); injectable for tests
}

// New creates an empty Ledger. Call Load to restore persisted state.
func New(cfg Config) (*Ledger, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("state store is required for ledger")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for ledger")
	}
	stages := cfg.Stages
	if stages == nil {
		stages = DefaultScaleOutStages
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Ledger{
		store:  cfg.Store,
		logger: cfg.Logger,
		stages: stages,
		now:    now,
		active: make(map[string]*domain.Position),
		closed: make([]*domain.Position, 0),
	}, nil
}

// Load restores ledger state from the store. An empty store yields an empty
// ledger. Existing in-memory state is replaced.
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrPersistenceFailed, err)
	}
	if len(b) == 0 {
		l.active = make(map[string]*domain.Position)
		l.closed = make([]*domain.Position, 0)
		return nil
	}

	active, closed, err := decodeState(b)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrPersistenceFailed, err)
	}
	l.active = active
	l.closed = closed
	l.logger.Info(ctx, "Ledger state restored", map[string]interface{}{
		"active": len(active),
		"closed": len(closed),
	})
	return nil
}

// OpenOrAdd opens a new position for the asset or averages into the existing
// one. The entry price of an existing position is recomputed as the
// quantity-weighted average of all fills, atomically with the quantity bump.
func (l *Ledger) OpenOrAdd(ctx context.Context, assetAddress, symbol, name string, quantity, price float64) (*domain.Position, error) {
	if quantity <= 0 || price <= 0 {
		return nil, ports.ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	active, closed := l.copyState()
	now := l.now()

	pos, exists := active[assetAddress]
	if exists {
		oldQty := pos.Quantity
		pos.EntryPrice = (oldQty*pos.EntryPrice + quantity*price) / (oldQty + quantity)
		pos.Quantity = oldQty + quantity
		pos.TotalBought += quantity
		pos.CurrentPrice = price
		pos.LastUpdateTime = now
	} else {
		pos = &domain.Position{
			ID:                ulid.Make().String(),
			AssetAddress:      assetAddress,
			AssetSymbol:       symbol,
			AssetName:         name,
			EntryPrice:        price,
			CurrentPrice:      price,
			Quantity:          quantity,
			TotalBought:       quantity,
			InitialInvestment: quantity * price,
			ScaleOutHistory:   make([]domain.ScaleOutEvent, 0),
			Status:            domain.StatusActive,
			EntryTime:         now,
			LastUpdateTime:    now,
		}
		active[assetAddress] = pos
	}

	if err := l.persist(ctx, active, closed); err != nil {
		return nil, err
	}
	l.active, l.closed = active, closed

	l.logger.Info(ctx, "Position opened or averaged", map[string]interface{}{
		"asset":      assetAddress,
		"quantity":   pos.Quantity,
		"entryPrice": pos.EntryPrice,
		"new":        !exists,
	})
	return pos.Clone(), nil
}

// ReducePosition sells part (or all) of an active position at the given
// price. It returns the realized P&L of the reduced slice and whether the
// position transitioned to closed. The position is left untouched on any
// error.
func (l *Ledger) ReducePosition(ctx context.Context, assetAddress string, quantity, price float64, reason domain.ReduceReason) (float64, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reduceLocked(ctx, assetAddress, quantity, price, reason, nil)
}

// CloseManually exits the full remaining quantity of an active position.
func (l *Ledger) CloseManually(ctx context.Context, assetAddress string, price float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.active[assetAddress]
	if !ok {
		return 0, ports.ErrPositionNotFound
	}
	realized, _, err := l.reduceLocked(ctx, assetAddress, pos.Quantity, price, domain.ReasonManualClose, nil)
	return realized, err
}

// RefreshPrice records a freshly observed price on the active position and
// evaluates the scale-out policy. Every stage the new price newly reaches is
// staged out, each at most once; the price update and any automatic exits are
// persisted as one transaction. A non-positive price is treated as
// unavailable and ignored.
func (l *Ledger) RefreshPrice(ctx context.Context, assetAddress string, price float64) error {
	if price <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.active[assetAddress]; !ok {
		return ports.ErrPositionNotFound
	}

	active, closed := l.copyState()
	pos := active[assetAddress]
	pos.CurrentPrice = price
	pos.LastUpdateTime = l.now()

	fired := 0
	for {
		decision := EvaluateScaleOut(pos, l.stages)
		if decision == nil {
			break
		}
		realized, wasClosed := l.applyReduce(pos, decision.Quantity, price, &decision.Stage)
		fired++
		l.logger.Info(ctx, "Scale-out stage fired", map[string]interface{}{
			"asset":    assetAddress,
			"multiple": decision.Stage.Multiple,
			"quantity": decision.Quantity,
			"realized": realized,
		})
		if wasClosed {
			delete(active, assetAddress)
			closed = append(closed, pos)
			break
		}
	}

	if err := l.persist(ctx, active, closed); err != nil {
		return err
	}
	l.active, l.closed = active, closed

	if fired > 0 {
		l.logger.Debug(ctx, "Price refresh completed with automatic exits", map[string]interface{}{
			"asset": assetAddress, "stages": fired,
		})
	}
	return nil
}

// ListActive returns a snapshot of the active positions ordered by entry
// time. The snapshot is deep-copied; mutating it has no effect on the ledger.
func (l *Ledger) ListActive() []*domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := sortedActive(l.active)
	for i, p := range out {
		out[i] = p.Clone()
	}
	return out
}

// ListClosed returns a snapshot of the closed positions in close order.
func (l *Ledger) ListClosed() []*domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*domain.Position, 0, len(l.closed))
	for _, p := range l.closed {
		out = append(out, p.Clone())
	}
	return out
}

// Summary derives aggregate statistics over the current ledger state.
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Summarize(sortedActive(l.active), l.closed)
}

// --- internals (callers hold l.mu) ---

func (l *Ledger) reduceLocked(ctx context.Context, assetAddress string, quantity, price float64, reason domain.ReduceReason, stage *ScaleOutStage) (float64, bool, error) {
	if quantity <= 0 || price <= 0 {
		return 0, false, ports.ErrInvalidQuantity
	}
	current, ok := l.active[assetAddress]
	if !ok {
		return 0, false, ports.ErrPositionNotFound
	}
	if quantity > current.Quantity+quantityEpsilon {
		return 0, false, ports.ErrInsufficientQuantity
	}

	active, closed := l.copyState()
	pos := active[assetAddress]
	realized, wasClosed := l.applyReduce(pos, quantity, price, stage)
	if wasClosed {
		delete(active, assetAddress)
		closed = append(closed, pos)
	}

	if err := l.persist(ctx, active, closed); err != nil {
		return 0, false, err
	}
	l.active, l.closed = active, closed

	l.logger.Info(ctx, "Position reduced", map[string]interface{}{
		"asset":    assetAddress,
		"quantity": quantity,
		"price":    price,
		"reason":   string(reason),
		"realized": realized,
		"closed":   wasClosed,
	})
	return realized, wasClosed, nil
}

// applyReduce mutates a copied position: realizes P&L for the slice, records
// the scale-out event when a stage drove the exit, and transitions the
// position to closed once remaining quantity falls within epsilon of zero.
func (l *Ledger) applyReduce(pos *domain.Position, quantity, price float64, stage *ScaleOutStage) (float64, bool) {
	now := l.now()

	realized := quantity * (price - pos.EntryPrice)
	pos.RealizedPnL += realized
	pos.RealizedProceeds += quantity * price
	pos.Quantity -= quantity
	pos.CurrentPrice = price
	pos.LastUpdateTime = now

	if stage != nil {
		fraction := 0.0
		if pos.TotalBought > 0 {
			fraction = quantity / pos.TotalBought
		}
		pos.ScaleOutHistory = append(pos.ScaleOutHistory, domain.ScaleOutEvent{
			ID:          ulid.Make().String(),
			Multiple:    stage.Multiple,
			Fraction:    fraction,
			Quantity:    quantity,
			PriceAtExit: price,
			Timestamp:   now,
		})
	}

	if !pos.SecuredInitial && pos.RealizedProceeds >= pos.InitialInvestment {
		pos.SecuredInitial = true
	}

	if pos.Quantity <= quantityEpsilon {
		pos.Quantity = 0
		pos.Status = domain.StatusClosed
		pos.ExitPrice = price
		pos.ExitTime = now
		if pos.EntryPrice > 0 {
			pos.ROI = (price/pos.EntryPrice - 1) * 100
		}
		return realized, true
	}
	return realized, false
}

// copyState deep-copies the owned state so a mutation can be prepared,
// persisted, and only then committed.
func (l *Ledger) copyState() (map[string]*domain.Position, []*domain.Position) {
	active := make(map[string]*domain.Position, len(l.active))
	for k, v := range l.active {
		active[k] = v.Clone()
	}
	closed := make([]*domain.Position, len(l.closed))
	for i, v := range l.closed {
		closed[i] = v.Clone()
	}
	return active, closed
}

// persist serializes the prospective state and writes it through the store.
func (l *Ledger) persist(ctx context.Context, active map[string]*domain.Position, closed []*domain.Position) error {
	b, err := encodeState(active, closed)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrPersistenceFailed, err)
	}
	if err := l.store.Save(ctx, b); err != nil {
		if errors.Is(err, ports.ErrPersistenceFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", ports.ErrPersistenceFailed, err)
	}
	return nil
}
