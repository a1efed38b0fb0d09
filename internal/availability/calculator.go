// Package availability computes how much of an equipment item is free over
// a date range: total stock minus the active commitments overlapping it.
// Occupancy is always derived from the commitment store, never from a
// counter kept on the item or lot.
package availability

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
	"log/slog"
	"time"
)

type Ledger interface {
	GetEquipmentItem(ctx context.Context, id string) (scheduling.EquipmentItem, error)
	GetSerialUnit(ctx context.Context, id string) (scheduling.SerialUnit, error)
	ListSerialUnits(ctx context.Context, itemID string, states ...scheduling.SerialState) ([]scheduling.SerialUnit, error)
	ListLots(ctx context.Context, itemID string, states ...scheduling.LotState) ([]scheduling.Lot, error)
}

type CommitmentStore interface {
	ListActiveCommitments(ctx context.Context, f scheduling.CommitmentFilter) ([]scheduling.Commitment, error)
}

type Query struct {
	ItemID   string
	Interval scheduling.Interval
	// ExcludeOrderID leaves one work order's own commitments out, so an
	// order being moved does not compete with itself.
	ExcludeOrderID string
}

type StockSource string

const (
	SourceSerialized StockSource = "serialized"
	SourceLot        StockSource = "lot"
	// SourceRawQuantity means the item has neither serial units nor lots and
	// stock came from the legacy on-hand quantity.
	SourceRawQuantity StockSource = "raw_quantity"
)

type Result struct {
	ItemID     string      `json:"item_id"`
	From       time.Time   `json:"from"`
	To         time.Time   `json:"to"`
	TotalStock int         `json:"total_stock"`
	Occupied   int         `json:"occupied"`
	Available  int         `json:"available"`
	Source     StockSource `json:"source"`
}

func (r Result) LegacyFallback() bool { return r.Source == SourceRawQuantity }

// Calculator answers availability questions from the ledger and the
// commitment store. It never writes.
type Calculator struct {
	Ledger      Ledger
	Commitments CommitmentStore
	Log         *slog.Logger
}

func (c *Calculator) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

// Check returns total stock, occupied and available units for q.
// Unknown items fail with ErrNotFound; any other data-access failure is
// wrapped in ErrAvailabilityCheckFailed.
func (c *Calculator) Check(ctx context.Context, q Query) (Result, error) {
	iv, err := scheduling.NewInterval(q.Interval.From, q.Interval.To)
	if err != nil {
		return Result{}, err
	}
	item, err := c.Ledger.GetEquipmentItem(ctx, q.ItemID)
	if err != nil {
		return Result{}, checkErr(q.ItemID, err)
	}

	res, err := c.resourceFor(ctx, item)
	if err != nil {
		return Result{}, checkErr(q.ItemID, err)
	}
	total, err := res.TotalStock(ctx)
	if err != nil {
		return Result{}, checkErr(q.ItemID, err)
	}
	occupied, err := res.Occupied(ctx, iv, q.ExcludeOrderID)
	if err != nil {
		return Result{}, checkErr(q.ItemID, err)
	}

	out := Result{
		ItemID:     item.ID,
		From:       iv.From,
		To:         iv.To,
		TotalStock: total,
		Occupied:   occupied,
		Available:  max(total-occupied, 0),
		Source:     res.Source(),
	}
	if out.LegacyFallback() {
		c.log().Warn("availability from legacy raw quantity",
			"item_id", item.ID, "tracking", item.Tracking, "raw_quantity", item.RawQuantity)
	}
	return out, nil
}

// IsSerialAvailable reports whether one specific unit is free on date. It
// looks only at that unit's commitments, not at aggregate counts. Units that
// have left the fleet (lost, retired) are never available.
func (c *Calculator) IsSerialAvailable(ctx context.Context, serialID string, date time.Time, excludeOrderID string) (bool, error) {
	unit, err := c.Ledger.GetSerialUnit(ctx, serialID)
	if err != nil {
		return false, checkErr(serialID, err)
	}
	if !unit.State.CountsTowardStock() {
		return false, nil
	}
	cs, err := c.Commitments.ListActiveCommitments(ctx, scheduling.CommitmentFilter{
		SerialUnitID:   serialID,
		Interval:       scheduling.SingleDay(date),
		ExcludeOrderID: excludeOrderID,
	})
	if err != nil {
		return false, checkErr(serialID, err)
	}
	return len(cs) == 0, nil
}

func checkErr(id string, err error) error {
	if errors.Is(err, scheduling.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", scheduling.ErrAvailabilityCheckFailed, id, err)
}
