// Package conflict validates a proposed work order date against equipment
// stock, crew and vehicle double-booking, and the montaje/desmontaje
// ordering of the same rental.
package conflict

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-rental-scheduling/internal/availability"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"sort"
	"strings"
	"time"
)

type WorkOrderStore interface {
	GetWorkOrder(ctx context.Context, id string) (scheduling.WorkOrder, error)
	GetPairedWorkOrder(ctx context.Context, rentalID string, typ scheduling.OrderType) (scheduling.WorkOrder, error)
}

type CommitmentStore interface {
	ListActiveCommitments(ctx context.Context, f scheduling.CommitmentFilter) ([]scheduling.Commitment, error)
}

type AvailabilityChecker interface {
	Check(ctx context.Context, q availability.Query) (availability.Result, error)
	IsSerialAvailable(ctx context.Context, serialID string, date time.Time, excludeOrderID string) (bool, error)
}

type Detector struct {
	Orders       WorkOrderStore
	Availability AvailabilityChecker
	Commitments  CommitmentStore
	Policy       Policy
	// CheckTimeout bounds each sub-check; zero means only the caller's ctx applies.
	CheckTimeout time.Duration
	Log          *slog.Logger
	Now          func() time.Time
}

func (d *Detector) log() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

func (d *Detector) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

// ValidateDateChange checks whether orderID can move to candidate. Only an
// unknown order fails the call; every sub-check failure becomes a finding
// flagged Error. The sub-checks run concurrently and read only.
func (d *Detector) ValidateDateChange(ctx context.Context, orderID string, candidate time.Time) (scheduling.Report, error) {
	order, err := d.Orders.GetWorkOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, scheduling.ErrNotFound) {
			return scheduling.Report{}, err
		}
		return scheduling.Report{}, fmt.Errorf("load work order %s: %w", orderID, err)
	}
	date := scheduling.Day(candidate)

	// One slot per check keeps the output order fixed regardless of which
	// goroutine finishes first.
	equipment := make([][]scheduling.Finding, len(order.Equipment))
	crew := make([][]scheduling.Finding, len(order.Crew))
	var vehicle, paired []scheduling.Finding

	var g errgroup.Group
	for i, line := range order.Equipment {
		i, line := i, line
		g.Go(func() error {
			sub, cancel := d.subContext(ctx)
			defer cancel()
			equipment[i] = d.checkEquipment(sub, order, line, date)
			return nil
		})
	}
	for i, emp := range order.Crew {
		i, emp := i, emp
		g.Go(func() error {
			sub, cancel := d.subContext(ctx)
			defer cancel()
			crew[i] = d.checkSameDay(sub, order, scheduling.FindingCrew, emp, date)
			return nil
		})
	}
	if order.HasVehicle() {
		g.Go(func() error {
			sub, cancel := d.subContext(ctx)
			defer cancel()
			vehicle = d.checkSameDay(sub, order, scheduling.FindingVehicle, order.VehicleID, date)
			return nil
		})
	}
	g.Go(func() error {
		sub, cancel := d.subContext(ctx)
		defer cancel()
		paired = d.checkPaired(sub, order, date)
		return nil
	})
	_ = g.Wait()

	var findings []scheduling.Finding
	for _, fs := range equipment {
		findings = append(findings, fs...)
	}
	for _, fs := range crew {
		findings = append(findings, fs...)
	}
	findings = append(findings, vehicle...)
	findings = append(findings, paired...)

	sev, approval := d.Policy.Classify(findings)
	rep := scheduling.Report{
		OrderID:          order.ID,
		CandidateDate:    date,
		Findings:         findings,
		Severity:         sev,
		RequiresApproval: approval,
		CheckedAt:        d.now(),
	}
	d.log().Debug("date change validated",
		"order_id", order.ID, "date", date.Format(scheduling.DateLayout),
		"findings", len(findings), "severity", sev)
	return rep, nil
}

func (d *Detector) subContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.CheckTimeout > 0 {
		return context.WithTimeout(ctx, d.CheckTimeout)
	}
	return context.WithCancel(ctx)
}

func (d *Detector) checkEquipment(ctx context.Context, order scheduling.WorkOrder, line scheduling.EquipmentLine, date time.Time) []scheduling.Finding {
	if line.SerialBound() {
		ok, err := d.Availability.IsSerialAvailable(ctx, line.SerialUnitID, date, order.ID)
		if err != nil {
			return []scheduling.Finding{d.failed(scheduling.FindingEquipment, line.SerialUnitID, err)}
		}
		if ok {
			return nil
		}
		return []scheduling.Finding{{
			Kind:       scheduling.FindingEquipment,
			ResourceID: line.SerialUnitID,
			Message:    fmt.Sprintf("unit %s is not available on %s", line.SerialUnitID, date.Format(scheduling.DateLayout)),
			Required:   1,
			Available:  0,
			Shortfall:  1,
		}}
	}

	if line.Quantity <= 0 {
		// Nothing to reserve; not a conflict either.
		d.log().Warn("skipping equipment line without quantity",
			"order_id", order.ID, "item_id", line.ItemID, "quantity", line.Quantity)
		return nil
	}
	required := line.Quantity
	res, err := d.Availability.Check(ctx, availability.Query{
		ItemID:         line.ItemID,
		Interval:       scheduling.SingleDay(date),
		ExcludeOrderID: order.ID,
	})
	if err != nil {
		return []scheduling.Finding{d.failed(scheduling.FindingEquipment, line.ItemID, err)}
	}
	if res.Available < required {
		msg := fmt.Sprintf("item %s: %d required, %d available on %s",
			line.ItemID, required, res.Available, date.Format(scheduling.DateLayout))
		if res.LegacyFallback() {
			msg += " (stock from legacy raw quantity)"
		}
		return []scheduling.Finding{{
			Kind:       scheduling.FindingEquipment,
			ResourceID: line.ItemID,
			Message:    msg,
			Required:   required,
			Available:  res.Available,
			Shortfall:  required - res.Available,
		}}
	}
	if res.LegacyFallback() {
		return []scheduling.Finding{{
			Kind:       scheduling.FindingEquipment,
			ResourceID: line.ItemID,
			Message:    fmt.Sprintf("item %s has no serial units or lots; stock taken from legacy raw quantity", line.ItemID),
			Required:   required,
			Available:  res.Available,
			Notice:     true,
		}}
	}
	return nil
}

// checkSameDay reports other active orders holding the same person or
// vehicle on date. Double-booking is advisory, not a shortage.
func (d *Detector) checkSameDay(ctx context.Context, order scheduling.WorkOrder, kind scheduling.FindingKind, resourceID string, date time.Time) []scheduling.Finding {
	f := scheduling.CommitmentFilter{Interval: scheduling.SingleDay(date), ExcludeOrderID: order.ID}
	noun := "crew member"
	if kind == scheduling.FindingVehicle {
		f.VehicleID = resourceID
		noun = "vehicle"
	} else {
		f.EmployeeID = resourceID
	}
	cs, err := d.Commitments.ListActiveCommitments(ctx, f)
	if err != nil {
		return []scheduling.Finding{d.failed(kind, resourceID, err)}
	}
	colliding := distinctOrders(cs)
	if len(colliding) == 0 {
		return nil
	}
	return []scheduling.Finding{{
		Kind:            kind,
		ResourceID:      resourceID,
		Message:         fmt.Sprintf("%s %s is also assigned on %s to %s", noun, resourceID, date.Format(scheduling.DateLayout), strings.Join(colliding, ", ")),
		CollidingOrders: colliding,
	}}
}

func distinctOrders(cs []scheduling.Commitment) []string {
	seen := make(map[string]bool, len(cs))
	var out []string
	for _, c := range cs {
		if !seen[c.WorkOrderID] {
			seen[c.WorkOrderID] = true
			out = append(out, c.WorkOrderID)
		}
	}
	sort.Strings(out)
	return out
}

// checkPaired enforces montaje <= desmontaje for the same rental.
func (d *Detector) checkPaired(ctx context.Context, order scheduling.WorkOrder, date time.Time) []scheduling.Finding {
	other, err := d.Orders.GetPairedWorkOrder(ctx, order.RentalID, order.Type.Pair())
	if errors.Is(err, scheduling.ErrNotFound) {
		return nil
	}
	if err != nil {
		return []scheduling.Finding{d.failed(scheduling.FindingPairedOrder, order.RentalID, err)}
	}
	pairedDate := scheduling.Day(other.ScheduledDate)

	var bad bool
	var rel string
	switch order.Type {
	case scheduling.OrderMontaje:
		bad, rel = date.After(pairedDate), "after"
	case scheduling.OrderDesmontaje:
		bad, rel = date.Before(pairedDate), "before"
	}
	if !bad {
		return nil
	}
	return []scheduling.Finding{{
		Kind:       scheduling.FindingPairedOrder,
		ResourceID: other.ID,
		Message: fmt.Sprintf("%s on %s would fall %s its %s %s on %s", order.Type, date.Format(scheduling.DateLayout),
			rel, other.Type, other.ID, pairedDate.Format(scheduling.DateLayout)),
		CollidingOrders: []string{other.ID},
	}}
}

func (d *Detector) failed(kind scheduling.FindingKind, resourceID string, err error) scheduling.Finding {
	d.log().Warn("sub-check failed", "kind", kind, "resource_id", resourceID, "err", err)
	return scheduling.Finding{
		Kind:       kind,
		ResourceID: resourceID,
		Message:    fmt.Sprintf("%s check for %s could not complete: %v", kind, resourceID, err),
		Error:      true,
	}
}
