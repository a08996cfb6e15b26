package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/gestioncarteras/backend/internal/external/registry"
	"github.com/gestioncarteras/backend/internal/loans"
	"github.com/gestioncarteras/backend/internal/report"
	"github.com/gestioncarteras/backend/pkg/logger"
)

// ReportHandler serves client credit reports and per-card indicators.
type ReportHandler struct {
	reports  *report.Service
	cards    *loans.Repository
	registry *registry.Client
	logger   *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports *report.Service, cards *loans.Repository, reg *registry.Client, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		reports:  reports,
		cards:    cards,
		registry: reg,
		logger:   log,
	}
}

// GetClientReport returns the full credit report for one client
// GET /api/clients/{id}/report?cuenta_id=N&registro=true
func (h *ReportHandler) GetClientReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := mux.Vars(r)["id"]

	var accountID *int64
	if raw := r.URL.Query().Get("cuenta_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid cuenta_id")
			return
		}
		accountID = &id
	}

	clientReport, err := h.reports.BuildReport(ctx, clientID, accountID)
	if err != nil {
		if errors.Is(err, report.ErrClientNotFound) {
			respondError(w, http.StatusNotFound, "Client not found")
			return
		}
		h.logger.WithError(err).WithField("client", clientID).Error("Failed to build report")
		respondError(w, http.StatusInternalServerError, "Failed to build report")
		return
	}

	// Optional external registry check. A registry outage degrades the
	// report instead of failing it.
	if r.URL.Query().Get("registro") == "true" && h.registry != nil {
		result, err := h.registry.Lookup(ctx, clientID)
		if err != nil {
			h.logger.WithError(err).WithField("client", clientID).Warn("Registry lookup failed")
		} else {
			clientReport.RegistryFlagged = result.Flagged
		}
	}

	respondJSON(w, http.StatusOK, clientReport)
}

// GetCardIndicators live-scores a single card
// GET /api/cards/{code}/indicators?fecha=YYYY-MM-DD
func (h *ReportHandler) GetCardIndicators(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cardCode := mux.Vars(r)["code"]

	evalDate := time.Now()
	if raw := r.URL.Query().Get("fecha"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid fecha, expected YYYY-MM-DD")
			return
		}
		evalDate = parsed
	}

	card, err := h.cards.CardByCode(ctx, cardCode)
	if err != nil {
		h.logger.WithError(err).WithField("card", cardCode).Error("Failed to load card")
		respondError(w, http.StatusInternalServerError, "Failed to load card")
		return
	}
	if card == nil {
		respondError(w, http.StatusNotFound, "Card not found")
		return
	}

	indicators, err := h.reports.CardIndicators(ctx, *card, evalDate)
	if err != nil {
		h.logger.WithError(err).WithField("card", cardCode).Error("Failed to score card")
		respondError(w, http.StatusInternalServerError, "Failed to score card")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tarjeta_codigo": cardCode,
		"fecha":          evalDate.Format("2006-01-02"),
		"indicadores":    indicators,
	})
}
