package scheduling

import (
	"context"
	"fmt"
	"github.com/jackc/pgx/v5/pgxpool"
	"strings"
)

type CommitmentRepo struct{ DB *pgxpool.Pool }

// ListActiveCommitments returns commitments matching f whose owning work
// order is neither cancelled nor completed. Overlap is inclusive.
func (r *CommitmentRepo) ListActiveCommitments(ctx context.Context, f CommitmentFilter) ([]Commitment, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ItemID != "" {
		add("c.item_id = $%d", f.ItemID)
	}
	if f.SerialUnitID != "" {
		add("c.serial_unit_id = $%d", f.SerialUnitID)
	}
	if f.EmployeeID != "" {
		add("c.employee_id = $%d", f.EmployeeID)
	}
	if f.VehicleID != "" {
		add("c.vehicle_id = $%d", f.VehicleID)
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("%w: commitment filter needs a resource", ErrValidation)
	}
	if f.ExcludeOrderID != "" {
		add("c.work_order_id <> $%d", f.ExcludeOrderID)
	}
	add("c.starts_on <= $%d", Day(f.Interval.To))
	add("c.ends_on >= $%d", Day(f.Interval.From))
	add("w.status <> ALL($%d)", []string{string(OrderCancelada), string(OrderCompletada)})

	rows, err := r.DB.Query(ctx, `
		SELECT c.id, c.work_order_id, c.kind,
		       COALESCE(c.item_id, ''), COALESCE(c.serial_unit_id, ''), COALESCE(c.lot_id, ''),
		       COALESCE(c.employee_id, ''), COALESCE(c.vehicle_id, ''),
		       c.quantity, c.starts_on, c.ends_on, w.status
		FROM commitments c
		JOIN work_orders w ON w.id = c.work_order_id
		WHERE `+strings.Join(conds, " AND ")+`
		ORDER BY c.starts_on, c.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Commitment
	for rows.Next() {
		var c Commitment
		var kind, status string
		if err := rows.Scan(&c.ID, &c.WorkOrderID, &kind,
			&c.ItemID, &c.SerialUnitID, &c.LotID, &c.EmployeeID, &c.VehicleID,
			&c.Quantity, &c.Interval.From, &c.Interval.To, &status); err != nil {
			return nil, err
		}
		c.Kind = ResourceKind(kind)
		c.OrderStatus = OrderStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}
