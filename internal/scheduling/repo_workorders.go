package scheduling

import (
	"context"
	"errors"
	"fmt"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"time"
)

type WorkOrderRepo struct{ DB *pgxpool.Pool }

// querier is the subset shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const workOrderColumns = `id, rental_id, type, status, scheduled_date, COALESCE(vehicle_id, ''), created_at, updated_at`

func scanWorkOrder(row pgx.Row) (WorkOrder, error) {
	var o WorkOrder
	var typ, status string
	if err := row.Scan(&o.ID, &o.RentalID, &typ, &status, &o.ScheduledDate, &o.VehicleID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return WorkOrder{}, err
	}
	o.Type = OrderType(typ)
	o.Status = OrderStatus(status)
	return o, nil
}

func (r *WorkOrderRepo) GetWorkOrder(ctx context.Context, id string) (WorkOrder, error) {
	o, err := scanWorkOrder(r.DB.QueryRow(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return WorkOrder{}, fmt.Errorf("work order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return WorkOrder{}, err
	}
	if err := loadAssignments(ctx, r.DB, &o); err != nil {
		return WorkOrder{}, err
	}
	return o, nil
}

// GetPairedWorkOrder returns the non-cancelled order of the given type for
// the rental, or ErrNotFound.
func (r *WorkOrderRepo) GetPairedWorkOrder(ctx context.Context, rentalID string, typ OrderType) (WorkOrder, error) {
	o, err := scanWorkOrder(r.DB.QueryRow(ctx, `
		SELECT `+workOrderColumns+` FROM work_orders
		WHERE rental_id=$1 AND type=$2 AND status <> $3
		ORDER BY scheduled_date LIMIT 1`, rentalID, string(typ), string(OrderCancelada)))
	if errors.Is(err, pgx.ErrNoRows) {
		return WorkOrder{}, fmt.Errorf("paired %s for rental %s: %w", typ, rentalID, ErrNotFound)
	}
	if err != nil {
		return WorkOrder{}, err
	}
	return o, nil
}

func loadAssignments(ctx context.Context, q querier, o *WorkOrder) error {
	rows, err := q.Query(ctx, `SELECT employee_id FROM work_order_crew WHERE work_order_id=$1 ORDER BY employee_id`, o.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var emp string
		if err := rows.Scan(&emp); err != nil {
			rows.Close()
			return err
		}
		o.Crew = append(o.Crew, emp)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.Query(ctx, `
		SELECT item_id, COALESCE(serial_unit_id, ''), COALESCE(lot_id, ''), quantity
		FROM work_order_equipment WHERE work_order_id=$1 ORDER BY id`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var l EquipmentLine
		if err := rows.Scan(&l.ItemID, &l.SerialUnitID, &l.LotID, &l.Quantity); err != nil {
			return err
		}
		o.Equipment = append(o.Equipment, l)
	}
	return rows.Err()
}

// RescheduleWorkOrder moves the order and its crew/vehicle commitments to
// date. The order row is locked for the duration of the transaction.
// Equipment commitments follow the rental period and are left alone.
func (r *WorkOrderRepo) RescheduleWorkOrder(ctx context.Context, id string, date time.Time) (WorkOrder, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return WorkOrder{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM work_orders WHERE id=$1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return WorkOrder{}, fmt.Errorf("work order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return WorkOrder{}, err
	}
	if !OrderStatus(status).Active() {
		return WorkOrder{}, fmt.Errorf("%w: work order %s is %s", ErrInvalidState, id, status)
	}

	day := Day(date)
	if _, err := tx.Exec(ctx, `UPDATE work_orders SET scheduled_date=$2, updated_at=now() WHERE id=$1`, id, day); err != nil {
		return WorkOrder{}, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE commitments SET starts_on=$2, ends_on=$2
		WHERE work_order_id=$1 AND kind IN ('crew', 'vehicle')`, id, day); err != nil {
		return WorkOrder{}, err
	}

	o, err := scanWorkOrder(tx.QueryRow(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE id=$1`, id))
	if err != nil {
		return WorkOrder{}, err
	}
	if err := loadAssignments(ctx, tx, &o); err != nil {
		return WorkOrder{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return WorkOrder{}, err
	}
	return o, nil
}
