package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperTrader/internal/domain"
	"paperTrader/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct {
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

// mockStore implements ports.StateStore in memory with switchable failures.
type mockStore struct {
	saved   [][]byte
	saveErr error
	loadErr error
}

func (m *mockStore) Save(ctx context.Context, state []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := make([]byte, len(state))
	copy(cp, state)
	m.saved = append(m.saved, cp)
	return nil
}

func (m *mockStore) Load(ctx context.Context) ([]byte, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if len(m.saved) == 0 {
		return nil, nil
	}
	return m.saved[len(m.saved)-1], nil
}

func (m *mockStore) Close() error { return nil }

func newTestLedger(t *testing.T) (*Ledger, *mockStore) {
	t.Helper()
	store := &mockStore{}
	l, err := New(Config{
		Store:  store,
		Logger: &mockLogger{},
		Now:    func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return l, store
}

func TestNew(t *testing.T) {
	t.Run("missing store", func(t *testing.T) {
		_, err := New(Config{Logger: &mockLogger{}})
		assert.Error(t, err)
	})
	t.Run("missing logger", func(t *testing.T) {
		_, err := New(Config{Store: &mockStore{}})
		assert.Error(t, err)
	})
}

func TestOpenOrAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		l, store := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 0, 0.001)
		assert.ErrorIs(t, err, ports.ErrInvalidQuantity)
		assert.Empty(t, store.saved, "no state should be persisted")
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 100, -1)
		assert.ErrorIs(t, err, ports.ErrInvalidQuantity)
	})

	t.Run("creates a fresh position", func(t *testing.T) {
		l, store := newTestLedger(t)
		pos, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
		require.NoError(t, err)

		assert.NotEmpty(t, pos.ID)
		assert.Equal(t, 0.001, pos.EntryPrice)
		assert.Equal(t, 1000.0, pos.Quantity)
		assert.Equal(t, 1000.0, pos.TotalBought)
		assert.InDelta(t, 1.0, pos.InitialInvestment, 1e-12)
		assert.Equal(t, domain.StatusActive, pos.Status)
		assert.Len(t, store.saved, 1, "mutation must persist")
	})

	t.Run("blends cost basis on a second buy", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
		require.NoError(t, err)

		pos, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.002)
		require.NoError(t, err)

		assert.InDelta(t, 0.0015, pos.EntryPrice, 1e-12)
		assert.Equal(t, 2000.0, pos.Quantity)
		assert.Equal(t, 2000.0, pos.TotalBought)
		assert.InDelta(t, 1.0, pos.InitialInvestment, 1e-12, "initial investment is fixed at open")
	})

	t.Run("entry price is the weighted average of many fills", func(t *testing.T) {
		l, _ := newTestLedger(t)
		fills := []struct{ qty, price float64 }{
			{500, 0.0010},
			{250, 0.0030},
			{1250, 0.0018},
			{3, 0.0042},
		}
		var sumQty, sumCost float64
		var pos *domain.Position
		var err error
		for _, f := range fills {
			pos, err = l.OpenOrAdd(ctx, "X", "XX", "Token X", f.qty, f.price)
			require.NoError(t, err)
			sumQty += f.qty
			sumCost += f.qty * f.price
		}
		assert.InDelta(t, sumCost/sumQty, pos.EntryPrice, 1e-12)
		assert.InDelta(t, sumQty, pos.Quantity, 1e-12)
	})

	t.Run("persistence failure leaves state untouched", func(t *testing.T) {
		l, store := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
		require.NoError(t, err)

		store.saveErr = errors.New("disk full")
		_, err = l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.002)
		assert.ErrorIs(t, err, ports.ErrPersistenceFailed)

		active := l.ListActive()
		require.Len(t, active, 1)
		assert.Equal(t, 1000.0, active[0].Quantity, "failed mutation must not be visible")
		assert.Equal(t, 0.001, active[0].EntryPrice)
	})

	t.Run("reopens after a close as a fresh position", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
		require.NoError(t, err)
		_, err = l.CloseManually(ctx, "X", 0.002)
		require.NoError(t, err)

		pos, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 50, 0.005)
		require.NoError(t, err)
		assert.Equal(t, 50.0, pos.Quantity)
		assert.Equal(t, 0.005, pos.EntryPrice)
		assert.InDelta(t, 0.25, pos.InitialInvestment, 1e-12)
		assert.Len(t, l.ListClosed(), 1, "closed history is retained")
	})
}

func TestReducePosition(t *testing.T) {
	ctx := context.Background()

	t.Run("no active position", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, _, err := l.ReducePosition(ctx, "X", 10, 0.001, domain.ReasonManual)
		assert.ErrorIs(t, err, ports.ErrPositionNotFound)
	})

	t.Run("reduction exceeding held quantity is rejected unchanged", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
		require.NoError(t, err)

		_, _, err = l.ReducePosition(ctx, "X", 1500, 0.002, domain.ReasonManual)
		assert.ErrorIs(t, err, ports.ErrInsufficientQuantity)

		active := l.ListActive()
		require.Len(t, active, 1)
		assert.Equal(t, 1000.0, active[0].Quantity)
		assert.Zero(t, active[0].RealizedPnL)
	})

	t.Run("partial reduction realizes the slice", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
		require.NoError(t, err)

		realized, closed, err := l.ReducePosition(ctx, "X", 400, 0.002, domain.ReasonManual)
		require.NoError(t, err)
		assert.False(t, closed)
		assert.InDelta(t, 0.4, realized, 1e-12) // 400 * (0.002 - 0.001)

		active := l.ListActive()
		require.Len(t, active, 1)
		assert.InDelta(t, 600.0, active[0].Quantity, 1e-9)
		assert.InDelta(t, 0.4, active[0].RealizedPnL, 1e-12)
		assert.Empty(t, active[0].ScaleOutHistory, "manual reductions record no scale-out event")
	})

	t.Run("full reduction closes the position", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
		require.NoError(t, err)

		realized, closed, err := l.ReducePosition(ctx, "X", 1000, 0.003, domain.ReasonManual)
		require.NoError(t, err)
		assert.True(t, closed)
		assert.InDelta(t, 2.0, realized, 1e-12)

		assert.Empty(t, l.ListActive())
		closedPositions := l.ListClosed()
		require.Len(t, closedPositions, 1)
		p := closedPositions[0]
		assert.Equal(t, domain.StatusClosed, p.Status)
		assert.Zero(t, p.Quantity)
		assert.Equal(t, 0.003, p.ExitPrice)
		assert.InDelta(t, 200.0, p.ROI, 1e-9) // (0.003/0.001 - 1) * 100
		assert.InDelta(t, 2.0, p.RealizedPnL, 1e-12)
	})

	t.Run("floating residue within epsilon closes the position", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 0.3, 1.0)
		require.NoError(t, err)

		// 0.3 - 0.1 - 0.1 - 0.1 leaves ~5.5e-17 of dust.
		for i := 0; i < 2; i++ {
			_, closed, err := l.ReducePosition(ctx, "X", 0.1, 1.0, domain.ReasonManual)
			require.NoError(t, err)
			require.False(t, closed)
		}
		_, closed, err := l.ReducePosition(ctx, "X", 0.1, 1.0, domain.ReasonManual)
		require.NoError(t, err)
		assert.True(t, closed, "dust below epsilon must not keep the position open")
	})

	t.Run("persistence failure aborts the reduction", func(t *testing.T) {
		l, store := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
		require.NoError(t, err)

		store.saveErr = errors.New("disk full")
		_, _, err = l.ReducePosition(ctx, "X", 1000, 0.002, domain.ReasonManual)
		assert.ErrorIs(t, err, ports.ErrPersistenceFailed)

		require.Len(t, l.ListActive(), 1)
		assert.Empty(t, l.ListClosed())
	})
}

func TestCloseManually(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	_, err := l.CloseManually(ctx, "X", 0.002)
	assert.ErrorIs(t, err, ports.ErrPositionNotFound)

	_, err = l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
	require.NoError(t, err)

	realized, err := l.CloseManually(ctx, "X", 0.002)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, realized, 1e-12)
	assert.Empty(t, l.ListActive())
	require.Len(t, l.ListClosed(), 1)

	// Once closed, further mutation for the asset needs a fresh open.
	_, _, err = l.ReducePosition(ctx, "X", 1, 0.002, domain.ReasonManual)
	assert.ErrorIs(t, err, ports.ErrPositionNotFound)
}

func TestRefreshPrice(t *testing.T) {
	ctx := context.Background()

	t.Run("no active position", func(t *testing.T) {
		l, _ := newTestLedger(t)
		err := l.RefreshPrice(ctx, "X", 0.002)
		assert.ErrorIs(t, err, ports.ErrPositionNotFound)
	})

	t.Run("non-positive price is ignored", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
		require.NoError(t, err)

		require.NoError(t, l.RefreshPrice(ctx, "X", 0))
		active := l.ListActive()
		assert.Equal(t, 0.001, active[0].CurrentPrice, "unavailable price leaves state untouched")
	})

	t.Run("updates current price without firing below threshold", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
		require.NoError(t, err)

		require.NoError(t, l.RefreshPrice(ctx, "X", 0.0015))
		active := l.ListActive()
		assert.Equal(t, 0.0015, active[0].CurrentPrice)
		assert.Equal(t, 1000.0, active[0].Quantity)
		assert.Empty(t, active[0].ScaleOutHistory)
	})

	t.Run("doubling stages out half and secures the initial", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
		require.NoError(t, err)

		require.NoError(t, l.RefreshPrice(ctx, "X", 0.002))

		active := l.ListActive()
		require.Len(t, active, 1)
		p := active[0]
		assert.InDelta(t, 500.0, p.Quantity, 1e-9)
		assert.True(t, p.SecuredInitial)
		require.Len(t, p.ScaleOutHistory, 1)
		ev := p.ScaleOutHistory[0]
		assert.Equal(t, 2.0, ev.Multiple)
		assert.InDelta(t, 0.5, ev.Fraction, 1e-12)
		assert.Equal(t, 0.002, ev.PriceAtExit)
		assert.InDelta(t, 0.5, p.RealizedPnL, 1e-12)
	})

	t.Run("threshold already recorded is a no-op", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
		require.NoError(t, err)

		require.NoError(t, l.RefreshPrice(ctx, "X", 0.002))
		require.NoError(t, l.RefreshPrice(ctx, "X", 0.0021))
		require.NoError(t, l.RefreshPrice(ctx, "X", 0.002))

		p := l.ListActive()[0]
		assert.Len(t, p.ScaleOutHistory, 1, "each stage fires at most once")
		assert.InDelta(t, 500.0, p.Quantity, 1e-9)
	})

	t.Run("price gap over several thresholds stages each once", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
		require.NoError(t, err)

		// 5x straight away: 2x (50% of bought), 3x (25% of bought),
		// then 5x (50% of remaining 250).
		require.NoError(t, l.RefreshPrice(ctx, "X", 0.005))

		p := l.ListActive()[0]
		require.Len(t, p.ScaleOutHistory, 3)
		assert.Equal(t, 2.0, p.ScaleOutHistory[0].Multiple)
		assert.Equal(t, 3.0, p.ScaleOutHistory[1].Multiple)
		assert.Equal(t, 5.0, p.ScaleOutHistory[2].Multiple)
		assert.InDelta(t, 125.0, p.Quantity, 1e-9)
	})

	t.Run("falling price never fires", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
		require.NoError(t, err)

		require.NoError(t, l.RefreshPrice(ctx, "X", 0.0005))
		p := l.ListActive()[0]
		assert.Empty(t, p.ScaleOutHistory)
		assert.Equal(t, 1000.0, p.Quantity)
	})

	t.Run("history fractions plus remainder account for everything bought", func(t *testing.T) {
		l, _ := newTestLedger(t)
		_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
		require.NoError(t, err)
		require.NoError(t, l.RefreshPrice(ctx, "X", 0.012)) // through every stage

		p := l.ListActive()[0]
		var sum float64
		for _, ev := range p.ScaleOutHistory {
			sum += ev.Fraction
		}
		assert.InDelta(t, 1.0, sum+p.Quantity/p.TotalBought, 1e-9)
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t)

	_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
	require.NoError(t, err)
	_, err = l.OpenOrAdd(ctx, "Y", "YY", "Token Y", 500, 0.01)
	require.NoError(t, err)
	require.NoError(t, l.RefreshPrice(ctx, "X", 0.002)) // one scale-out recorded
	_, err = l.CloseManually(ctx, "Y", 0.02)
	require.NoError(t, err)

	restored, err := New(Config{Store: store, Logger: &mockLogger{}})
	require.NoError(t, err)
	require.NoError(t, restored.Load(ctx))

	assert.Equal(t, l.ListActive(), restored.ListActive())
	assert.Equal(t, l.ListClosed(), restored.ListClosed())
}

func TestListSnapshotsAreIsolatedAndIdempotent(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	_, err := l.OpenOrAdd(ctx, "X", "XX", "Token X", 1000, 0.001)
	require.NoError(t, err)

	first := l.ListActive()
	second := l.ListActive()
	assert.Equal(t, first, second, "queries without mutation are idempotent")

	first[0].Quantity = 0
	first[0].ScaleOutHistory = append(first[0].ScaleOutHistory, domain.ScaleOutEvent{Multiple: 99})
	assert.Equal(t, 1000.0, l.ListActive()[0].Quantity, "snapshot mutation must not leak into the ledger")
	assert.Empty(t, l.ListActive()[0].ScaleOutHistory)

	sumA := l.Summary()
	sumB := l.Summary()
	assert.Equal(t, sumA, sumB)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store yields an empty ledger", func(t *testing.T) {
		l, _ := newTestLedger(t)
		require.NoError(t, l.Load(ctx))
		assert.Empty(t, l.ListActive())
		assert.Empty(t, l.ListClosed())
	})

	t.Run("load failure surfaces as persistence error", func(t *testing.T) {
		store := &mockStore{loadErr: errors.New("corrupt file")}
		l, err := New(Config{Store: store, Logger: &mockLogger{}})
		require.NoError(t, err)
		assert.ErrorIs(t, l.Load(ctx), ports.ErrPersistenceFailed)
	})
}
