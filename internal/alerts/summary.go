package alerts

import (
	"context"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
)

// Summary is the dashboard view of pending alerts.
type Summary struct {
	Pending    int                              `json:"pending"`
	BySeverity map[scheduling.AlertSeverity]int `json:"by_severity"`
	ByKind     map[scheduling.FindingKind]int   `json:"by_kind"`
}

func (r *Recorder) List(ctx context.Context, f scheduling.AlertFilter) ([]scheduling.Alert, error) {
	return r.Store.ListAlerts(ctx, f)
}

// Summarize groups pending alerts by severity and by kind. Read only.
func (r *Recorder) Summarize(ctx context.Context) (Summary, error) {
	as, err := r.Store.ListAlerts(ctx, scheduling.AlertFilter{Status: scheduling.AlertPendiente})
	if err != nil {
		return Summary{}, err
	}
	return Summarize(as), nil
}

func Summarize(as []scheduling.Alert) Summary {
	s := Summary{
		BySeverity: make(map[scheduling.AlertSeverity]int),
		ByKind:     make(map[scheduling.FindingKind]int),
	}
	for _, a := range as {
		if a.Status != scheduling.AlertPendiente {
			continue
		}
		s.Pending++
		s.BySeverity[a.Severity]++
		s.ByKind[a.Kind]++
	}
	return s
}
