package ledger

import (
	"encoding/json"
	"fmt"
	"sort"

	"paperTrader/internal/domain"
)

// The persisted document is a flat JSON list of position records, active
// positions first (ordered by entry time) followed by closed positions in
// close order. The document must round-trip losslessly.

func encodeState(active map[string]*domain.Position, closed []*domain.Position) ([]byte, error) {
	records := make([]*domain.Position, 0, len(active)+len(closed))
	records = append(records, sortedActive(active)...)
	records = append(records, closed...)

	b, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ledger state: %w", err)
	}
	return b, nil
}

func decodeState(b []byte) (map[string]*domain.Position, []*domain.Position, error) {
	var records []*domain.Position
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, nil, fmt.Errorf("failed to decode ledger state: %w", err)
	}

	active := make(map[string]*domain.Position)
	closed := make([]*domain.Position, 0)
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if rec.Status == domain.StatusActive {
			active[rec.AssetAddress] = rec
		} else {
			closed = append(closed, rec)
		}
	}
	return active, closed, nil
}

// sortedActive returns the active positions ordered by entry time, breaking
// ties by asset address so snapshots are deterministic.
func sortedActive(active map[string]*domain.Position) []*domain.Position {
	out := make([]*domain.Position, 0, len(active))
	for _, p := range active {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].EntryTime.Before(out[j].EntryTime)
		}
		return out[i].AssetAddress < out[j].AssetAddress
	})
	return out
}
