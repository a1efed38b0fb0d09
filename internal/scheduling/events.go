package scheduling

import (
	"encoding/json"
	"time"
)

const (
	EventConflictDetected = "ConflictDetected"
	EventAlertRaised      = "AlertRaised"
	EventAlertResolved    = "AlertResolved"
	EventAlertEscalated   = "AlertEscalated"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // work order id
	Payload       json.RawMessage `json:"payload"`
}

type ConflictDetectedPayload struct {
	OrderID string `json:"order_id"`
	Report  Report `json:"report"`
}

type AlertChangedPayload struct {
	AlertID       string        `json:"alert_id"`
	SourceOrderID string        `json:"source_order_id"`
	Kind          FindingKind   `json:"kind"`
	Severity      AlertSeverity `json:"severity"`
	Status        AlertStatus   `json:"status"`
	Notes         string        `json:"notes,omitempty"`
}
