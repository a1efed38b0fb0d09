package scheduling

import (
	"encoding/json"
	"time"
)

type FindingKind string

const (
	FindingEquipment   FindingKind = "equipment"
	FindingCrew        FindingKind = "crew"
	FindingVehicle     FindingKind = "vehicle"
	FindingPairedOrder FindingKind = "paired_order"
)

// Finding is one conflict or advisory produced while validating a change.
type Finding struct {
	Kind       FindingKind `json:"kind"`
	ResourceID string      `json:"resource_id"`
	Message    string      `json:"message"`

	Required  int `json:"required"`
	Available int `json:"available"`
	Shortfall int `json:"shortfall,omitempty"`

	CollidingOrders []string `json:"colliding_orders,omitempty"`

	// Error marks a check that could not be completed; the finding stands in
	// for the unknown outcome.
	Error bool `json:"error,omitempty"`
	// Notice marks purely informational findings (no shortage, no collision).
	Notice bool `json:"notice,omitempty"`
}

// Shortage is an equipment finding that counts toward aggregate shortfall.
func (f Finding) Shortage() bool {
	return f.Kind == FindingEquipment && !f.Error && !f.Notice && f.Shortfall > 0
}

type Severity string

const (
	SeverityOK          Severity = "ok"
	SeverityInfo        Severity = "info"
	SeverityAdvertencia Severity = "advertencia"
	SeverityAlto        Severity = "alto"
	SeverityCritico     Severity = "critico"
)

var severityScale = []Severity{SeverityOK, SeverityInfo, SeverityAdvertencia, SeverityAlto, SeverityCritico}

func (s Severity) Rank() int {
	for i, v := range severityScale {
		if v == s {
			return i
		}
	}
	return -1
}

func (s Severity) AtLeast(min Severity) bool { return s.Rank() >= min.Rank() }

// AlertSeverity maps a report severity onto the alert scale.
func (s Severity) AlertSeverity() AlertSeverity {
	switch s {
	case SeverityCritico:
		return AlertCritica
	case SeverityAlto:
		return AlertAlta
	case SeverityAdvertencia:
		return AlertMedia
	default:
		return AlertBaja
	}
}

func ParseSeverity(s string) (Severity, bool) {
	v := Severity(s)
	return v, v.Rank() >= 0
}

// Report is the outcome of validating one proposed change.
type Report struct {
	OrderID          string    `json:"order_id"`
	CandidateDate    time.Time `json:"candidate_date"`
	Findings         []Finding `json:"findings"`
	Severity         Severity  `json:"severity"`
	RequiresApproval bool      `json:"requires_approval"`
	CheckedAt        time.Time `json:"checked_at"`
}

// Alert is a persisted, actionable group of findings.
type Alert struct {
	ID              string          `json:"id"`
	Kind            FindingKind     `json:"kind"`
	Severity        AlertSeverity   `json:"severity"`
	Status          AlertStatus     `json:"status"`
	SourceOrderID   string          `json:"source_order_id"`
	Message         string          `json:"message"`
	Details         json.RawMessage `json:"details,omitempty"`
	ResolutionNotes string          `json:"resolution_notes,omitempty"`
	ResolvedBy      string          `json:"resolved_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
	EscalatedAt     *time.Time      `json:"escalated_at,omitempty"`
}

// AlertPatch is a conditional update: it applies only while the alert is in
// ExpectedStatus, otherwise the store fails with ErrInvalidState.
type AlertPatch struct {
	ExpectedStatus  AlertStatus
	Status          AlertStatus
	Severity        AlertSeverity
	ResolutionNotes string
	ResolvedBy      string
	ResolvedAt      *time.Time
	EscalatedAt     *time.Time
	UpdatedAt       time.Time
}

// Apply returns a copy of a with the patch applied.
func (p AlertPatch) Apply(a Alert) Alert {
	if p.Status != "" {
		a.Status = p.Status
	}
	if p.Severity != "" {
		a.Severity = p.Severity
	}
	if p.ResolutionNotes != "" {
		a.ResolutionNotes = p.ResolutionNotes
	}
	if p.ResolvedBy != "" {
		a.ResolvedBy = p.ResolvedBy
	}
	if p.ResolvedAt != nil {
		a.ResolvedAt = p.ResolvedAt
	}
	if p.EscalatedAt != nil {
		a.EscalatedAt = p.EscalatedAt
	}
	if !p.UpdatedAt.IsZero() {
		a.UpdatedAt = p.UpdatedAt
	}
	return a
}

type AlertFilter struct {
	Status        AlertStatus
	Kind          FindingKind
	Severity      AlertSeverity
	SourceOrderID string
}

func (f AlertFilter) Matches(a Alert) bool {
	switch {
	case f.Status != "" && a.Status != f.Status:
		return false
	case f.Kind != "" && a.Kind != f.Kind:
		return false
	case f.Severity != "" && a.Severity != f.Severity:
		return false
	case f.SourceOrderID != "" && a.SourceOrderID != f.SourceOrderID:
		return false
	}
	return true
}
