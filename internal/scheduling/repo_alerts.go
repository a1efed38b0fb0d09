package scheduling

import (
	"context"
	"errors"
	"fmt"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"strings"
)

type AlertRepo struct{ DB *pgxpool.Pool }

const alertColumns = `id, kind, severity, status, source_order_id, message, details,
	resolution_notes, resolved_by, created_at, updated_at, resolved_at, escalated_at`

func scanAlert(row pgx.Row) (Alert, error) {
	var a Alert
	var kind, sev, status string
	var details []byte
	if err := row.Scan(&a.ID, &kind, &sev, &status, &a.SourceOrderID, &a.Message, &details,
		&a.ResolutionNotes, &a.ResolvedBy, &a.CreatedAt, &a.UpdatedAt, &a.ResolvedAt, &a.EscalatedAt); err != nil {
		return Alert{}, err
	}
	a.Kind = FindingKind(kind)
	a.Severity = AlertSeverity(sev)
	a.Status = AlertStatus(status)
	a.Details = details
	return a, nil
}

// PersistAlert inserts a; an existing id is left as is and reported as false.
func (r *AlertRepo) PersistAlert(ctx context.Context, a Alert) (bool, error) {
	var details any
	if len(a.Details) > 0 {
		details = []byte(a.Details)
	}
	tag, err := r.DB.Exec(ctx, `
		INSERT INTO alerts(id, kind, severity, status, source_order_id, message, details,
		                   resolution_notes, resolved_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO NOTHING`,
		a.ID, string(a.Kind), string(a.Severity), string(a.Status), a.SourceOrderID, a.Message, details,
		a.ResolutionNotes, a.ResolvedBy, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *AlertRepo) GetAlert(ctx context.Context, id string) (Alert, error) {
	a, err := scanAlert(r.DB.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Alert{}, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return a, err
}

// UpdateAlert applies p only while the alert is still in p.ExpectedStatus,
// so two concurrent resolutions cannot both succeed.
func (r *AlertRepo) UpdateAlert(ctx context.Context, id string, p AlertPatch) (Alert, error) {
	a, err := scanAlert(r.DB.QueryRow(ctx, `
		UPDATE alerts SET
			status           = COALESCE(NULLIF($3, ''), status),
			severity         = COALESCE(NULLIF($4, ''), severity),
			resolution_notes = COALESCE(NULLIF($5, ''), resolution_notes),
			resolved_by      = COALESCE(NULLIF($6, ''), resolved_by),
			resolved_at      = COALESCE($7, resolved_at),
			escalated_at     = COALESCE($8, escalated_at),
			updated_at       = $9
		WHERE id=$1 AND status=$2
		RETURNING `+alertColumns,
		id, string(p.ExpectedStatus), string(p.Status), string(p.Severity), p.ResolutionNotes, p.ResolvedBy,
		p.ResolvedAt, p.EscalatedAt, p.UpdatedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		cur, gerr := r.GetAlert(ctx, id)
		if gerr != nil {
			return Alert{}, gerr
		}
		return Alert{}, fmt.Errorf("%w: alert %s is %s, expected %s", ErrInvalidState, id, cur.Status, p.ExpectedStatus)
	}
	return a, err
}

func (r *AlertRepo) ListAlerts(ctx context.Context, f AlertFilter) ([]Alert, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if f.Severity != "" {
		add("severity = $%d", string(f.Severity))
	}
	if f.SourceOrderID != "" {
		add("source_order_id = $%d", f.SourceOrderID)
	}
	q := `SELECT ` + alertColumns + ` FROM alerts`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	rows, err := r.DB.Query(ctx, q+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
