package availability

import (
	"context"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
)

// stockResource is the one place serialized and lot-tracked items differ.
type stockResource interface {
	Source() StockSource
	TotalStock(ctx context.Context) (int, error)
	Occupied(ctx context.Context, iv scheduling.Interval, excludeOrderID string) (int, error)
}

// resourceFor picks the representation by tracking mode, then tries the
// other one, then falls back to the raw on-hand quantity.
func (c *Calculator) resourceFor(ctx context.Context, item scheduling.EquipmentItem) (stockResource, error) {
	sources := []func() (stockResource, error){c.serialSource(ctx, item), c.lotSource(ctx, item)}
	if item.Tracking == scheduling.TrackingLot {
		sources[0], sources[1] = sources[1], sources[0]
	}
	for _, src := range sources {
		res, err := src()
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	return &rawResource{item: item, commitments: c.Commitments}, nil
}

func (c *Calculator) serialSource(ctx context.Context, item scheduling.EquipmentItem) func() (stockResource, error) {
	return func() (stockResource, error) {
		units, err := c.Ledger.ListSerialUnits(ctx, item.ID)
		if err != nil || len(units) == 0 {
			return nil, err
		}
		return &serialResource{itemID: item.ID, units: units, commitments: c.Commitments}, nil
	}
}

func (c *Calculator) lotSource(ctx context.Context, item scheduling.EquipmentItem) func() (stockResource, error) {
	return func() (stockResource, error) {
		lots, err := c.Ledger.ListLots(ctx, item.ID)
		if err != nil || len(lots) == 0 {
			return nil, err
		}
		return &lotResource{itemID: item.ID, lots: lots, commitments: c.Commitments}, nil
	}
}

type serialResource struct {
	itemID      string
	units       []scheduling.SerialUnit
	commitments CommitmentStore
}

func (r *serialResource) Source() StockSource { return SourceSerialized }

func (r *serialResource) TotalStock(context.Context) (int, error) {
	n := 0
	for _, u := range r.units {
		if u.State.CountsTowardStock() {
			n++
		}
	}
	return n, nil
}

// Occupied counts distinct committed units; commitments not bound to a unit
// add their quantity.
func (r *serialResource) Occupied(ctx context.Context, iv scheduling.Interval, exclude string) (int, error) {
	cs, err := r.commitments.ListActiveCommitments(ctx, scheduling.CommitmentFilter{
		ItemID: r.itemID, Interval: iv, ExcludeOrderID: exclude,
	})
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(cs))
	n := 0
	for _, c := range cs {
		if c.Kind != "" && c.Kind != scheduling.ResourceEquipment {
			continue
		}
		if c.SerialUnitID != "" {
			if seen[c.SerialUnitID] {
				continue
			}
			seen[c.SerialUnitID] = true
		}
		n += c.Units()
	}
	return n, nil
}

type lotResource struct {
	itemID      string
	lots        []scheduling.Lot
	commitments CommitmentStore
}

func (r *lotResource) Source() StockSource { return SourceLot }

func (r *lotResource) TotalStock(context.Context) (int, error) {
	n := 0
	for _, l := range r.lots {
		if l.State == scheduling.LotActive && l.Quantity > 0 {
			n += l.Quantity
		}
	}
	return n, nil
}

func (r *lotResource) Occupied(ctx context.Context, iv scheduling.Interval, exclude string) (int, error) {
	return sumUnits(ctx, r.commitments, r.itemID, iv, exclude)
}

type rawResource struct {
	item        scheduling.EquipmentItem
	commitments CommitmentStore
}

func (r *rawResource) Source() StockSource { return SourceRawQuantity }

func (r *rawResource) TotalStock(context.Context) (int, error) {
	return max(r.item.RawQuantity, 0), nil
}

func (r *rawResource) Occupied(ctx context.Context, iv scheduling.Interval, exclude string) (int, error) {
	return sumUnits(ctx, r.commitments, r.item.ID, iv, exclude)
}

func sumUnits(ctx context.Context, store CommitmentStore, itemID string, iv scheduling.Interval, exclude string) (int, error) {
	cs, err := store.ListActiveCommitments(ctx, scheduling.CommitmentFilter{
		ItemID: itemID, Interval: iv, ExcludeOrderID: exclude,
	})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range cs {
		if c.Kind != "" && c.Kind != scheduling.ResourceEquipment {
			continue
		}
		n += c.Units()
	}
	return n, nil
}
