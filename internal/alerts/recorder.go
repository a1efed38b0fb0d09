// Package alerts turns conflict findings into persisted alerts with a
// resolution workflow: pendiente, then resuelta, descartada or escalada.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/go-rental-scheduling/internal/conflict"
	kafkax "github.com/ariefcatur/go-rental-scheduling/internal/kafka"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"log/slog"
	"strings"
	"time"
)

type Store interface {
	// PersistAlert stores a and reports false when an alert with the same
	// id already exists, leaving the stored one untouched.
	PersistAlert(ctx context.Context, a scheduling.Alert) (bool, error)
	GetAlert(ctx context.Context, id string) (scheduling.Alert, error)
	UpdateAlert(ctx context.Context, id string, p scheduling.AlertPatch) (scheduling.Alert, error)
	ListAlerts(ctx context.Context, f scheduling.AlertFilter) ([]scheduling.Alert, error)
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Recorder struct {
	Store  Store
	Policy conflict.Policy
	// MinSeverity is the lowest report severity that produces alerts.
	MinSeverity scheduling.Severity

	// Optional; nil publishers are skipped.
	Raised    Publisher
	Resolved  Publisher
	Escalated Publisher

	ServiceName string
	Log         *slog.Logger
	Now         func() time.Time
}

func (r *Recorder) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

func (r *Recorder) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// alertNamespace scopes ids derived from conflict event ids.
var alertNamespace = uuid.MustParse("6f1c2a4e-9b3d-5e7f-8a10-2c4d6e8f0a1b")

// Record persists one group of same-kind findings as a pendiente alert.
func (r *Recorder) Record(ctx context.Context, findings []scheduling.Finding, sourceOrderID string) (scheduling.Alert, error) {
	return r.record(ctx, findings, sourceOrderID, uuid.NewString())
}

func (r *Recorder) record(ctx context.Context, findings []scheduling.Finding, sourceOrderID, id string) (scheduling.Alert, error) {
	if len(findings) == 0 {
		return scheduling.Alert{}, fmt.Errorf("%w: empty finding group", scheduling.ErrValidation)
	}
	if sourceOrderID == "" {
		return scheduling.Alert{}, fmt.Errorf("%w: missing source order", scheduling.ErrValidation)
	}
	kind := findings[0].Kind
	for _, f := range findings[1:] {
		if f.Kind != kind {
			return scheduling.Alert{}, fmt.Errorf("%w: finding group mixes %s and %s", scheduling.ErrValidation, kind, f.Kind)
		}
	}

	details, err := json.Marshal(findings)
	if err != nil {
		return scheduling.Alert{}, err
	}
	sev, _ := r.Policy.Classify(findings)
	now := r.now()
	a := scheduling.Alert{
		ID:            id,
		Kind:          kind,
		Severity:      sev.AlertSeverity(),
		Status:        scheduling.AlertPendiente,
		SourceOrderID: sourceOrderID,
		Message:       groupMessage(findings),
		Details:       details,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created, err := r.Store.PersistAlert(ctx, a)
	if err != nil {
		return scheduling.Alert{}, fmt.Errorf("persist alert: %w", err)
	}
	if !created {
		// already recorded by an earlier attempt; it was announced then
		return r.Store.GetAlert(ctx, id)
	}
	r.log().Info("alert raised", "alert_id", a.ID, "order_id", sourceOrderID, "kind", kind, "severity", a.Severity)
	r.publish(r.Raised, scheduling.EventAlertRaised, a, "")
	return a, nil
}

var groupOrder = []scheduling.FindingKind{
	scheduling.FindingEquipment,
	scheduling.FindingCrew,
	scheduling.FindingVehicle,
	scheduling.FindingPairedOrder,
}

// RecordFromReport records one alert per finding kind when the report is at
// or above MinSeverity. Informational notices never become alerts.
func (r *Recorder) RecordFromReport(ctx context.Context, rep scheduling.Report, orderID string) ([]scheduling.Alert, error) {
	return r.recordReport(ctx, rep, orderID, "")
}

// RecordFromEvent is RecordFromReport for a report carried by an event. Alert
// ids derive from eventID and the finding kind, so redelivering the event
// yields the alerts it already produced instead of new ones.
func (r *Recorder) RecordFromEvent(ctx context.Context, rep scheduling.Report, orderID, eventID string) ([]scheduling.Alert, error) {
	if eventID == "" {
		return nil, fmt.Errorf("%w: missing event id", scheduling.ErrValidation)
	}
	return r.recordReport(ctx, rep, orderID, eventID)
}

func (r *Recorder) recordReport(ctx context.Context, rep scheduling.Report, orderID, eventID string) ([]scheduling.Alert, error) {
	if orderID == "" {
		orderID = rep.OrderID
	}
	floor := r.MinSeverity
	if floor == "" {
		floor = scheduling.SeverityAdvertencia
	}
	if !rep.Severity.AtLeast(floor) {
		return nil, nil
	}

	groups := make(map[scheduling.FindingKind][]scheduling.Finding)
	for _, f := range rep.Findings {
		if f.Notice {
			continue
		}
		groups[f.Kind] = append(groups[f.Kind], f)
	}

	var out []scheduling.Alert
	for _, kind := range groupOrder {
		fs := groups[kind]
		if len(fs) == 0 {
			continue
		}
		id := uuid.NewString()
		if eventID != "" {
			id = uuid.NewSHA1(alertNamespace, []byte(eventID+"/"+string(kind))).String()
		}
		a, err := r.record(ctx, fs, orderID, id)
		if err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Resolve closes a pendiente alert as resuelta or descartada. Any other
// current status fails with ErrInvalidState, so a second resolve fails.
func (r *Recorder) Resolve(ctx context.Context, alertID, resolverID, notes string, outcome scheduling.AlertStatus) (scheduling.Alert, error) {
	if outcome != scheduling.AlertResuelta && outcome != scheduling.AlertDescartada {
		return scheduling.Alert{}, fmt.Errorf("%w: outcome must be %s or %s, got %q",
			scheduling.ErrValidation, scheduling.AlertResuelta, scheduling.AlertDescartada, outcome)
	}
	if resolverID == "" {
		return scheduling.Alert{}, fmt.Errorf("%w: missing resolver", scheduling.ErrValidation)
	}
	cur, err := r.Store.GetAlert(ctx, alertID)
	if err != nil {
		return scheduling.Alert{}, err
	}
	if cur.Status != scheduling.AlertPendiente {
		return scheduling.Alert{}, fmt.Errorf("%w: alert %s is %s", scheduling.ErrInvalidState, alertID, cur.Status)
	}

	now := r.now()
	a, err := r.Store.UpdateAlert(ctx, alertID, scheduling.AlertPatch{
		ExpectedStatus:  scheduling.AlertPendiente,
		Status:          outcome,
		ResolutionNotes: notes,
		ResolvedBy:      resolverID,
		ResolvedAt:      &now,
		UpdatedAt:       now,
	})
	if err != nil {
		return scheduling.Alert{}, err
	}
	r.log().Info("alert resolved", "alert_id", a.ID, "outcome", outcome, "resolver", resolverID)
	r.publish(r.Resolved, scheduling.EventAlertResolved, a, notes)
	return a, nil
}

// Escalate moves the alert to escalada and raises its severity one step,
// capped at critica. Only an alert already escalada at critica is returned
// unchanged.
func (r *Recorder) Escalate(ctx context.Context, alertID, notes string) (scheduling.Alert, error) {
	cur, err := r.Store.GetAlert(ctx, alertID)
	if err != nil {
		return scheduling.Alert{}, err
	}
	if !scheduling.CanTransitionAlert(cur.Status, scheduling.AlertEscalada) {
		return scheduling.Alert{}, fmt.Errorf("%w: alert %s is %s", scheduling.ErrInvalidState, alertID, cur.Status)
	}
	if cur.Status == scheduling.AlertEscalada && cur.Severity == scheduling.AlertCritica {
		return cur, nil
	}

	now := r.now()
	a, err := r.Store.UpdateAlert(ctx, alertID, scheduling.AlertPatch{
		ExpectedStatus:  cur.Status,
		Status:          scheduling.AlertEscalada,
		Severity:        cur.Severity.Next(),
		ResolutionNotes: notes,
		EscalatedAt:     &now,
		UpdatedAt:       now,
	})
	if err != nil {
		return scheduling.Alert{}, err
	}
	r.log().Info("alert escalated", "alert_id", a.ID, "from", cur.Severity, "to", a.Severity)
	r.publish(r.Escalated, scheduling.EventAlertEscalated, a, notes)
	return a, nil
}

func (r *Recorder) publish(p Publisher, eventType string, a scheduling.Alert, notes string) {
	if p == nil {
		return
	}
	ev := scheduling.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    r.now(),
		Producer:      r.ServiceName,
		CorrelationID: a.SourceOrderID,
		Payload: kafkax.MustMarshal(scheduling.AlertChangedPayload{
			AlertID:       a.ID,
			SourceOrderID: a.SourceOrderID,
			Kind:          a.Kind,
			Severity:      a.Severity,
			Status:        a.Status,
			Notes:         notes,
		}),
	}
	p.Publish(scheduling.PartitionKey(a.SourceOrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func groupMessage(findings []scheduling.Finding) string {
	if len(findings) == 1 {
		return findings[0].Message
	}
	msgs := make([]string, 0, len(findings))
	for _, f := range findings {
		msgs = append(msgs, f.Message)
	}
	return fmt.Sprintf("%d %s findings: %s", len(findings), findings[0].Kind, strings.Join(msgs, "; "))
}
