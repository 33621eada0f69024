package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bobmcallan/tickwatch/internal/common"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// handleSnapshot handles GET /api/market/snapshot/{ticker}.
// Query parameters: source (preferred provider), refresh=true to bypass
// the cache, news=true to attach stored news.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := PathParam(r, "/api/market/snapshot/")
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	query := r.URL.Query()
	preferred := query.Get("source")
	forceRefresh := query.Get("refresh") == "true"

	snapshot, err := s.app.MarketService.GetSnapshot(r.Context(), ticker, preferred, forceRefresh)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Error fetching snapshot: %v", err))
		return
	}

	if query.Get("news") == "true" {
		if news, err := s.app.MarketService.GetNews(r.Context(), ticker, 0); err == nil {
			snapshot.News = news
		}
	}

	WriteJSON(w, http.StatusOK, snapshot)
}

// handleNews handles GET /api/market/news/{ticker}?limit=N.
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := PathParam(r, "/api/market/news/")
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	items, err := s.app.MarketService.GetNews(r.Context(), ticker, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error fetching news: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": ticker,
		"count":  len(items),
		"news":   items,
	})
}

// handleRefresh handles POST /api/market/refresh. The optional JSON
// body {"tickers": [...]} restricts the batch; otherwise every tracked
// ticker is refreshed.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Tickers []string `json:"tickers"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	succeeded, failed, err := s.app.MarketService.RefreshAll(r.Context(), req.Tickers)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Refresh error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"succeeded": succeeded,
		"failed":    failed,
	})
}

// handleTickers handles GET /api/market/tickers.
func (s *Server) handleTickers(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	tickers, err := s.app.Storage.ListTickers(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing tickers: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(tickers),
		"tickers": tickers,
	})
}
