// Package memstore is an in-memory implementation of the scheduling
// repositories, used by tests and local runs without Postgres.
package memstore

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
	"sort"
	"sync"
	"time"
)

// Store holds items, units, lots, work orders, commitments and alerts.
// It is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	items       map[string]scheduling.EquipmentItem
	units       map[string]scheduling.SerialUnit
	lots        map[string]scheduling.Lot
	orders      map[string]scheduling.WorkOrder
	commitments []scheduling.Commitment
	alerts      map[string]scheduling.Alert

	faults map[string]error
	delays map[string]time.Duration
}

func New() *Store {
	return &Store{
		items:  make(map[string]scheduling.EquipmentItem),
		units:  make(map[string]scheduling.SerialUnit),
		lots:   make(map[string]scheduling.Lot),
		orders: make(map[string]scheduling.WorkOrder),
		alerts: make(map[string]scheduling.Alert),
		faults: make(map[string]error),
		delays: make(map[string]time.Duration),
	}
}

// Operation names accepted by InjectError and InjectDelay.
const (
	OpGetItem         = "get_item"
	OpGetUnit         = "get_unit"
	OpGetOrder        = "get_order"
	OpListUnits       = "list_units"
	OpListLots        = "list_lots"
	OpItemCommitments = "item_commitments"
	OpUnitCommitments = "unit_commitments"
	OpCrewCommitments = "crew_commitments"
	OpVanCommitments  = "vehicle_commitments"
	OpPairedOrder     = "paired_order"
	OpPersistAlert    = "persist_alert" // keyed by finding kind
)

// InjectError makes op fail with err when called for id. A nil err clears
// the fault.
func (s *Store) InjectError(op, id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op+":"+id)
		return
	}
	s.faults[op+":"+id] = err
}

// InjectDelay makes op block for d (or until ctx is done) when called for id.
func (s *Store) InjectDelay(op, id string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[op+":"+id] = d
}

func (s *Store) hook(ctx context.Context, op, id string) error {
	s.mu.RLock()
	err := s.faults[op+":"+id]
	d := s.delays[op+":"+id]
	s.mu.RUnlock()
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Store) AddItem(it scheduling.EquipmentItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[it.ID] = it
}

func (s *Store) AddSerialUnit(u scheduling.SerialUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[u.ID] = u
}

func (s *Store) AddLot(l scheduling.Lot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lots[l.ID] = l
}

func (s *Store) AddWorkOrder(o scheduling.WorkOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ScheduledDate = scheduling.Day(o.ScheduledDate)
	s.orders[o.ID] = o
}

// AddCommitment records c. The owning work order must be added first for
// its status to be taken into account.
func (s *Store) AddCommitment(c scheduling.Commitment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = fmt.Sprintf("c-%d", len(s.commitments)+1)
	}
	s.commitments = append(s.commitments, c)
}

// SetOrderStatus changes an order's status without transition checks.
func (s *Store) SetOrderStatus(id string, st scheduling.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		o.Status = st
		s.orders[id] = o
	}
}

func (s *Store) GetEquipmentItem(ctx context.Context, id string) (scheduling.EquipmentItem, error) {
	if err := s.hook(ctx, OpGetItem, id); err != nil {
		return scheduling.EquipmentItem{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return scheduling.EquipmentItem{}, fmt.Errorf("equipment item %s: %w", id, scheduling.ErrNotFound)
	}
	return it, nil
}

func (s *Store) GetSerialUnit(ctx context.Context, id string) (scheduling.SerialUnit, error) {
	if err := s.hook(ctx, OpGetUnit, id); err != nil {
		return scheduling.SerialUnit{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	if !ok {
		return scheduling.SerialUnit{}, fmt.Errorf("serial unit %s: %w", id, scheduling.ErrNotFound)
	}
	return u, nil
}

func (s *Store) ListSerialUnits(ctx context.Context, itemID string, states ...scheduling.SerialState) ([]scheduling.SerialUnit, error) {
	if err := s.hook(ctx, OpListUnits, itemID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []scheduling.SerialUnit
	for _, u := range s.units {
		if u.ItemID == itemID && (len(states) == 0 || containsState(states, u.State)) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SerialNumber < out[j].SerialNumber })
	return out, nil
}

func (s *Store) ListLots(ctx context.Context, itemID string, states ...scheduling.LotState) ([]scheduling.Lot, error) {
	if err := s.hook(ctx, OpListLots, itemID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []scheduling.Lot
	for _, l := range s.lots {
		if l.ItemID == itemID && (len(states) == 0 || containsState(states, l.State)) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LotNumber < out[j].LotNumber })
	return out, nil
}

func containsState[T comparable](states []T, s T) bool {
	for _, v := range states {
		if v == s {
			return true
		}
	}
	return false
}

func (s *Store) ListActiveCommitments(ctx context.Context, f scheduling.CommitmentFilter) ([]scheduling.Commitment, error) {
	var op, id string
	switch {
	case f.ItemID != "":
		op, id = OpItemCommitments, f.ItemID
	case f.SerialUnitID != "":
		op, id = OpUnitCommitments, f.SerialUnitID
	case f.EmployeeID != "":
		op, id = OpCrewCommitments, f.EmployeeID
	case f.VehicleID != "":
		op, id = OpVanCommitments, f.VehicleID
	default:
		return nil, fmt.Errorf("%w: commitment filter needs a resource", scheduling.ErrValidation)
	}
	if err := s.hook(ctx, op, id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []scheduling.Commitment
	for _, c := range s.commitments {
		if o, ok := s.orders[c.WorkOrderID]; ok {
			c.OrderStatus = o.Status
		}
		if c.OrderStatus == "" {
			c.OrderStatus = scheduling.OrderProgramada
		}
		if c.Active() && f.Matches(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) GetWorkOrder(ctx context.Context, id string) (scheduling.WorkOrder, error) {
	if err := s.hook(ctx, OpGetOrder, id); err != nil {
		return scheduling.WorkOrder{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return scheduling.WorkOrder{}, fmt.Errorf("work order %s: %w", id, scheduling.ErrNotFound)
	}
	return cloneOrder(o), nil
}

func (s *Store) GetPairedWorkOrder(ctx context.Context, rentalID string, typ scheduling.OrderType) (scheduling.WorkOrder, error) {
	if err := s.hook(ctx, OpPairedOrder, rentalID); err != nil {
		return scheduling.WorkOrder{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found []scheduling.WorkOrder
	for _, o := range s.orders {
		if o.RentalID == rentalID && o.Type == typ && o.Status != scheduling.OrderCancelada {
			found = append(found, o)
		}
	}
	if len(found) == 0 {
		return scheduling.WorkOrder{}, fmt.Errorf("paired %s for rental %s: %w", typ, rentalID, scheduling.ErrNotFound)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ScheduledDate.Before(found[j].ScheduledDate) })
	return cloneOrder(found[0]), nil
}

func (s *Store) RescheduleWorkOrder(ctx context.Context, id string, date time.Time) (scheduling.WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return scheduling.WorkOrder{}, fmt.Errorf("work order %s: %w", id, scheduling.ErrNotFound)
	}
	if !o.Status.Active() {
		return scheduling.WorkOrder{}, fmt.Errorf("%w: work order %s is %s", scheduling.ErrInvalidState, id, o.Status)
	}
	o.ScheduledDate = scheduling.Day(date)
	o.UpdatedAt = time.Now().UTC()
	s.orders[id] = o
	for i, c := range s.commitments {
		if c.WorkOrderID == id && (c.Kind == scheduling.ResourceCrew || c.Kind == scheduling.ResourceVehicle) {
			s.commitments[i].Interval = scheduling.SingleDay(date)
		}
	}
	return cloneOrder(o), nil
}

func cloneOrder(o scheduling.WorkOrder) scheduling.WorkOrder {
	o.Crew = append([]string(nil), o.Crew...)
	o.Equipment = append([]scheduling.EquipmentLine(nil), o.Equipment...)
	return o
}

func (s *Store) PersistAlert(ctx context.Context, a scheduling.Alert) (bool, error) {
	if err := s.hook(ctx, OpPersistAlert, string(a.Kind)); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[a.ID]; ok {
		return false, nil
	}
	s.alerts[a.ID] = a
	return true, nil
}

func (s *Store) GetAlert(ctx context.Context, id string) (scheduling.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return scheduling.Alert{}, fmt.Errorf("alert %s: %w", id, scheduling.ErrNotFound)
	}
	return a, nil
}

func (s *Store) UpdateAlert(ctx context.Context, id string, p scheduling.AlertPatch) (scheduling.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return scheduling.Alert{}, fmt.Errorf("alert %s: %w", id, scheduling.ErrNotFound)
	}
	if a.Status != p.ExpectedStatus {
		return scheduling.Alert{}, fmt.Errorf("%w: alert %s is %s, expected %s",
			scheduling.ErrInvalidState, id, a.Status, p.ExpectedStatus)
	}
	a = p.Apply(a)
	s.alerts[id] = a
	return a, nil
}

func (s *Store) ListAlerts(ctx context.Context, f scheduling.AlertFilter) ([]scheduling.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []scheduling.Alert
	for _, a := range s.alerts {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
