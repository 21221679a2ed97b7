package handler

import (
	"io"
	"net/http"
	"strings"
	"time"

	"paperTrader/internal/ports"
)

// ProxyHandler forwards read-only requests to the three external data
// providers (chain data, price routing, market data) so the browser never
// talks to them directly. The providers' wire formats are opaque: responses
// are streamed back untouched.
type ProxyHandler struct {
	upstreams map[string]string // provider name -> base URL
	client    *http.Client
	logger    ports.Logger
}

// NewProxyHandler creates a proxy handler for the given provider base URLs.
// Providers with an empty base URL are not registered.
func NewProxyHandler(upstreams map[string]string, timeout time.Duration, logger ports.Logger) *ProxyHandler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	registered := make(map[string]string, len(upstreams))
	for name, base := range upstreams {
		if base != "" {
			registered[name] = strings.TrimRight(base, "/")
		}
	}
	return &ProxyHandler{
		upstreams: registered,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// Forward relays a GET request to the addressed provider, preserving the
// remaining path and query string.
func (h *ProxyHandler) Forward(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	base, ok := h.upstreams[provider]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown provider")
		return
	}

	target := base + "/" + r.PathValue("rest")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed proxy target")
		return
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn(r.Context(), "Upstream provider request failed", map[string]interface{}{
			"provider": provider, "error": err.Error(),
		})
		writeError(w, http.StatusBadGateway, "upstream provider unavailable")
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Debug(r.Context(), "Proxy response copy interrupted", map[string]interface{}{
			"provider": provider, "error": err.Error(),
		})
	}
}
