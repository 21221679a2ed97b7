package handler

import (
	"net/http"

	"paperTrader/internal/app"
)

// SummaryHandler serves the aggregate dashboard report.
type SummaryHandler struct {
	svc *app.DashboardService
}

// NewSummaryHandler creates a summary handler.
func NewSummaryHandler(svc *app.DashboardService) *SummaryHandler {
	return &SummaryHandler{svc: svc}
}

// GetSummary serves aggregate P&L statistics plus the USD reference price of
// the quote currency when available.
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GetSummary(r.Context()))
}
