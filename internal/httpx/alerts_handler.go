package httpx

import (
	"context"
	"encoding/json"
	"github.com/ariefcatur/go-rental-scheduling/internal/alerts"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
	"github.com/go-chi/chi/v5"
	"net/http"
	"time"
)

type AlertsHandler struct {
	Recorder *alerts.Recorder
}

type ResolveReq struct {
	ResolverID string `json:"resolver_id"`
	Notes      string `json:"notes"`
	Outcome    string `json:"outcome"`
}

type EscalateReq struct {
	Notes string `json:"notes"`
}

func (h *AlertsHandler) Register(r *chi.Mux) {
	r.Get("/alerts", h.list)
	r.Get("/alerts/summary", h.summary)
	r.Post("/alerts/{id}/resolve", h.resolve)
	r.Post("/alerts/{id}/escalate", h.escalate)
}

func (h *AlertsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := scheduling.AlertFilter{
		Status:        scheduling.AlertStatus(q.Get("status")),
		Kind:          scheduling.FindingKind(q.Get("kind")),
		Severity:      scheduling.AlertSeverity(q.Get("severity")),
		SourceOrderID: q.Get("order_id"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	as, err := h.Recorder.List(ctx, f)
	if err != nil {
		writeError(w, err)
		return
	}
	if as == nil {
		as = []scheduling.Alert{}
	}
	writeJSON(w, http.StatusOK, as)
}

func (h *AlertsHandler) summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s, err := h.Recorder.Summarize(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *AlertsHandler) resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	outcome := scheduling.AlertStatus(req.Outcome)
	if outcome == "" {
		outcome = scheduling.AlertResuelta
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	a, err := h.Recorder.Resolve(ctx, chi.URLParam(r, "id"), req.ResolverID, req.Notes, outcome)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AlertsHandler) escalate(w http.ResponseWriter, r *http.Request) {
	var req EscalateReq
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	a, err := h.Recorder.Escalate(ctx, chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
