package conflict

import "github.com/ariefcatur/go-rental-scheduling/internal/scheduling"

// Policy holds the business thresholds used to grade a report.
type Policy struct {
	// Aggregate equipment shortfall above this is critico.
	CriticalShortfall int
	// Aggregate equipment shortfall above this is alto.
	HighShortfall int
	// This many crew/vehicle/paired-order (or failed-check) findings or more is alto.
	HighAdvisories int
}

func DefaultPolicy() Policy {
	return Policy{CriticalShortfall: 5, HighShortfall: 2, HighAdvisories: 3}
}

// Classify reduces findings to a severity and whether the change must be
// held for explicit approval. Equipment shortage is evaluated first and
// dominates; crew, vehicle and paired-order findings only grade the rest.
func (p Policy) Classify(findings []scheduling.Finding) (scheduling.Severity, bool) {
	if len(findings) == 0 {
		return scheduling.SeverityOK, false
	}

	shortfall, advisories := 0, 0
	for _, f := range findings {
		switch {
		case f.Notice:
		case f.Shortage():
			shortfall += f.Shortfall
		case f.Error, f.Kind != scheduling.FindingEquipment:
			advisories++
		}
	}

	var sev scheduling.Severity
	switch {
	case shortfall > p.CriticalShortfall:
		sev = scheduling.SeverityCritico
	case shortfall > p.HighShortfall:
		sev = scheduling.SeverityAlto
	case advisories >= p.HighAdvisories:
		sev = scheduling.SeverityAlto
	case advisories > 0 || shortfall > 0:
		sev = scheduling.SeverityAdvertencia
	default:
		sev = scheduling.SeverityInfo
	}
	return sev, sev == scheduling.SeverityCritico
}
