package handler

import (
	"net/http"

	"paperTrader/internal/app"
	"paperTrader/internal/ports"
)

// PositionHandler exposes the ledger's command surface over HTTP.
type PositionHandler struct {
	svc    *app.DashboardService
	logger ports.Logger
}

// NewPositionHandler creates a position handler.
func NewPositionHandler(svc *app.DashboardService, logger ports.Logger) *PositionHandler {
	return &PositionHandler{svc: svc, logger: logger}
}

// ListActive serves the active position snapshot.
func (h *PositionHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GetActivePositions())
}

// ListClosed serves the closed position history.
func (h *PositionHandler) ListClosed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GetClosedPositions())
}

type openRequest struct {
	AssetAddress string  `json:"assetAddress"`
	AssetSymbol  string  `json:"assetSymbol"`
	AssetName    string  `json:"assetName"`
	Quantity     float64 `json:"quantity"`
	Price        float64 `json:"price"`
}

// Open buys into an asset, creating a position or averaging into the
// existing one.
func (h *PositionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.AssetAddress == "" {
		writeError(w, http.StatusBadRequest, "assetAddress is required")
		return
	}

	pos, err := h.svc.Open(r.Context(), req.AssetAddress, req.AssetSymbol, req.AssetName, req.Quantity, req.Price)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pos)
}

// Close exits the full remaining quantity of the addressed position.
func (h *PositionHandler) Close(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "asset address is required")
		return
	}

	realized, err := h.svc.Close(r.Context(), address)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assetAddress": address,
		"realizedPnL":  realized,
	})
}
