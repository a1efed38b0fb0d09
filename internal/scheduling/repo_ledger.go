package scheduling

import (
	"context"
	"errors"
	"fmt"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepo is the read-only inventory ledger over Postgres.
type LedgerRepo struct{ DB *pgxpool.Pool }

func (r *LedgerRepo) GetEquipmentItem(ctx context.Context, id string) (EquipmentItem, error) {
	var it EquipmentItem
	var mode string
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, tracking_mode, raw_quantity, created_at, updated_at
		FROM equipment_items WHERE id=$1`, id).
		Scan(&it.ID, &it.Name, &mode, &it.RawQuantity, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return EquipmentItem{}, fmt.Errorf("equipment item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return EquipmentItem{}, err
	}
	it.Tracking = TrackingMode(mode)
	return it, nil
}

func (r *LedgerRepo) GetSerialUnit(ctx context.Context, id string) (SerialUnit, error) {
	var u SerialUnit
	var state string
	err := r.DB.QueryRow(ctx, `SELECT id, item_id, serial_number, state FROM serial_units WHERE id=$1`, id).
		Scan(&u.ID, &u.ItemID, &u.SerialNumber, &state)
	if errors.Is(err, pgx.ErrNoRows) {
		return SerialUnit{}, fmt.Errorf("serial unit %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return SerialUnit{}, err
	}
	u.State = SerialState(state)
	return u, nil
}

// ListSerialUnits returns the item's units; with no states given, all of them.
func (r *LedgerRepo) ListSerialUnits(ctx context.Context, itemID string, states ...SerialState) ([]SerialUnit, error) {
	q := `SELECT id, item_id, serial_number, state FROM serial_units WHERE item_id=$1`
	args := []any{itemID}
	if len(states) > 0 {
		ss := make([]string, 0, len(states))
		for _, s := range states {
			ss = append(ss, string(s))
		}
		q += ` AND state = ANY($2)`
		args = append(args, ss)
	}
	rows, err := r.DB.Query(ctx, q+` ORDER BY serial_number`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SerialUnit
	for rows.Next() {
		var u SerialUnit
		var state string
		if err := rows.Scan(&u.ID, &u.ItemID, &u.SerialNumber, &state); err != nil {
			return nil, err
		}
		u.State = SerialState(state)
		out = append(out, u)
	}
	return out, rows.Err()
}

// ListLots returns the item's lots; with no states given, all of them.
func (r *LedgerRepo) ListLots(ctx context.Context, itemID string, states ...LotState) ([]Lot, error) {
	q := `SELECT id, item_id, lot_number, quantity, state FROM lots WHERE item_id=$1`
	args := []any{itemID}
	if len(states) > 0 {
		ss := make([]string, 0, len(states))
		for _, s := range states {
			ss = append(ss, string(s))
		}
		q += ` AND state = ANY($2)`
		args = append(args, ss)
	}
	rows, err := r.DB.Query(ctx, q+` ORDER BY lot_number`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lot
	for rows.Next() {
		var l Lot
		var state string
		if err := rows.Scan(&l.ID, &l.ItemID, &l.LotNumber, &l.Quantity, &state); err != nil {
			return nil, err
		}
		l.State = LotState(state)
		out = append(out, l)
	}
	return out, rows.Err()
}
