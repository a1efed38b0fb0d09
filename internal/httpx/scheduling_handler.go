package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ariefcatur/go-rental-scheduling/internal/availability"
	"github.com/ariefcatur/go-rental-scheduling/internal/reschedule"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
	"github.com/go-chi/chi/v5"
	"net/http"
	"time"
)

type LineChecker interface {
	CheckLines(ctx context.Context, iv scheduling.Interval, lines []availability.Line) []availability.LineResult
}

type DateValidator interface {
	ValidateDateChange(ctx context.Context, orderID string, candidate time.Time) (scheduling.Report, error)
}

type DateChanger interface {
	ChangeDate(ctx context.Context, req reschedule.Request) (reschedule.Outcome, error)
}

type ReportRecorder interface {
	RecordFromReport(ctx context.Context, rep scheduling.Report, orderID string) ([]scheduling.Alert, error)
}

type SchedulingHandler struct {
	Availability availability.Checker
	Quotes       LineChecker
	Detector     DateValidator
	Rescheduler  DateChanger
	Alerts       ReportRecorder
}

type DateReq struct {
	Date string `json:"date"`
}

type RescheduleReq struct {
	Date        string `json:"date"`
	Override    bool   `json:"override"`
	RequestedBy string `json:"requested_by"`
}

type QuotationReq struct {
	From  string              `json:"from"`
	To    string              `json:"to"`
	Lines []availability.Line `json:"lines"`
}

type QuotationResp struct {
	Lines     []availability.LineResult `json:"lines"`
	Shortfall int                       `json:"shortfall"`
	Complete  bool                      `json:"complete"` // false when any line failed
}

type RecordAlertsResp struct {
	Report scheduling.Report  `json:"report"`
	Alerts []scheduling.Alert `json:"alerts"`
}

func (h *SchedulingHandler) Register(r *chi.Mux) {
	r.Get("/equipment/{id}/availability", h.checkAvailability)
	r.Post("/quotations/availability", h.checkQuotation)
	r.Post("/work-orders/{id}/validate-date", h.validateDate)
	r.Post("/work-orders/{id}/reschedule", h.reschedule)
	r.Post("/work-orders/{id}/alerts", h.recordAlerts)
}

func parseRange(from, to string) (scheduling.Interval, error) {
	f, err := scheduling.ParseDate(from)
	if err != nil {
		return scheduling.Interval{}, err
	}
	t := f
	if to != "" {
		if t, err = scheduling.ParseDate(to); err != nil {
			return scheduling.Interval{}, err
		}
	}
	return scheduling.NewInterval(f, t)
}

func (h *SchedulingHandler) checkAvailability(w http.ResponseWriter, r *http.Request) {
	iv, err := parseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Availability.Check(ctx, availability.Query{ItemID: chi.URLParam(r, "id"), Interval: iv})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *SchedulingHandler) checkQuotation(w http.ResponseWriter, r *http.Request) {
	var req QuotationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.Lines) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing lines"})
		return
	}
	iv, err := parseRange(req.From, req.To)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	resp := QuotationResp{Lines: h.Quotes.CheckLines(ctx, iv, req.Lines), Complete: true}
	for _, l := range resp.Lines {
		resp.Shortfall += l.Shortfall
		if l.Error != "" {
			resp.Complete = false
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SchedulingHandler) decodeDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	var req DateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return time.Time{}, false
	}
	d, err := scheduling.ParseDate(req.Date)
	if err != nil {
		writeError(w, err)
		return time.Time{}, false
	}
	return d, true
}

func (h *SchedulingHandler) validateDate(w http.ResponseWriter, r *http.Request) {
	date, ok := h.decodeDate(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rep, err := h.Detector.ValidateDateChange(ctx, chi.URLParam(r, "id"), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *SchedulingHandler) reschedule(w http.ResponseWriter, r *http.Request) {
	var req RescheduleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	date, err := scheduling.ParseDate(req.Date)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	out, err := h.Rescheduler.ChangeDate(ctx, reschedule.Request{
		OrderID:     chi.URLParam(r, "id"),
		Date:        date,
		Override:    req.Override,
		RequestedBy: req.RequestedBy,
		TraceID:     r.Header.Get("X-Request-Id"),
	})
	if errors.Is(err, scheduling.ErrApprovalRequired) {
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "outcome": out})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SchedulingHandler) recordAlerts(w http.ResponseWriter, r *http.Request) {
	date, ok := h.decodeDate(w, r)
	if !ok {
		return
	}
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rep, err := h.Detector.ValidateDateChange(ctx, orderID, date)
	if err != nil {
		writeError(w, err)
		return
	}
	as, err := h.Alerts.RecordFromReport(ctx, rep, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if as == nil {
		as = []scheduling.Alert{}
	}
	writeJSON(w, http.StatusCreated, RecordAlertsResp{Report: rep, Alerts: as})
}
