// Package reschedule applies a work order date change after validating it.
// Validation and apply run under a short-lived per-order lock, and the
// change is re-validated inside that lock, so a report computed earlier by
// the caller is never trusted on its own.
package reschedule

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-rental-scheduling/internal/alerts"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
	"log/slog"
	"time"
)

type Validator interface {
	ValidateDateChange(ctx context.Context, orderID string, candidate time.Time) (scheduling.Report, error)
}

type Applier interface {
	RescheduleWorkOrder(ctx context.Context, id string, date time.Time) (scheduling.WorkOrder, error)
}

type AlertRecorder interface {
	RecordFromReport(ctx context.Context, rep scheduling.Report, orderID string) ([]scheduling.Alert, error)
}

type Locker interface {
	Lock(ctx context.Context, orderID string) (func(), error)
}

type Request struct {
	OrderID     string    `json:"order_id"`
	Date        time.Time `json:"date"`
	Override    bool      `json:"override"`
	RequestedBy string    `json:"requested_by"`
	TraceID     string    `json:"-"`
}

type Outcome struct {
	Report  scheduling.Report     `json:"report"`
	Applied bool                  `json:"applied"`
	Order   *scheduling.WorkOrder `json:"order,omitempty"`
	Alerts  []scheduling.Alert    `json:"alerts,omitempty"`
}

type Service struct {
	Validator Validator
	Orders    Applier
	Locker    Locker // optional

	// Findings of an applied change go to Alerts when set, otherwise they
	// are published on Conflicts for the alert consumer.
	Alerts    AlertRecorder
	Conflicts alerts.Publisher

	ServiceName string
	Log         *slog.Logger
}

func (s *Service) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// ChangeDate validates and, unless the report demands approval that was not
// given, applies the new date. A critico report without Override returns
// the report with ErrApprovalRequired and changes nothing.
func (s *Service) ChangeDate(ctx context.Context, req Request) (Outcome, error) {
	if req.OrderID == "" || req.Date.IsZero() {
		return Outcome{}, fmt.Errorf("%w: order id and date are required", scheduling.ErrValidation)
	}
	if req.Override && req.RequestedBy == "" {
		return Outcome{}, fmt.Errorf("%w: override needs requested_by", scheduling.ErrValidation)
	}

	if s.Locker != nil {
		unlock, err := s.Locker.Lock(ctx, req.OrderID)
		if err != nil {
			return Outcome{}, err
		}
		defer unlock()
	}

	rep, err := s.Validator.ValidateDateChange(ctx, req.OrderID, req.Date)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Report: rep}
	if rep.RequiresApproval && !req.Override {
		return out, fmt.Errorf("%w: work order %s on %s is %s",
			scheduling.ErrApprovalRequired, req.OrderID, rep.CandidateDate.Format(scheduling.DateLayout), rep.Severity)
	}

	order, err := s.Orders.RescheduleWorkOrder(ctx, req.OrderID, rep.CandidateDate)
	if err != nil {
		return out, err
	}
	out.Applied = true
	out.Order = &order
	s.log().Info("work order rescheduled",
		"order_id", req.OrderID, "date", rep.CandidateDate.Format(scheduling.DateLayout),
		"severity", rep.Severity, "override", req.Override, "requested_by", req.RequestedBy)

	if rep.Severity == scheduling.SeverityOK {
		return out, nil
	}
	switch {
	case s.Alerts != nil:
		as, err := s.Alerts.RecordFromReport(ctx, rep, req.OrderID)
		if err != nil {
			// the date is already applied; losing the alert must not undo it
			s.log().Error("record alerts after reschedule", "order_id", req.OrderID, "err", err)
		}
		out.Alerts = as
	case s.Conflicts != nil:
		alerts.PublishConflict(s.Conflicts, s.ServiceName, req.TraceID, rep)
	}
	return out, nil
}
