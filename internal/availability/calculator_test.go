package availability

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-rental-scheduling/internal/memstore"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
	"testing"
	"time"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := scheduling.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func span(t *testing.T, from, to string) scheduling.Interval {
	t.Helper()
	iv, err := scheduling.NewInterval(day(t, from), day(t, to))
	if err != nil {
		t.Fatal(err)
	}
	return iv
}

// carpaStore holds 10 serialized tents: 2 retired, 1 lost, and two of the
// remaining units committed 2025-02-10..2025-02-12.
func carpaStore(t *testing.T) *memstore.Store {
	t.Helper()
	s := memstore.New()
	s.AddItem(scheduling.EquipmentItem{ID: "carpa-3x3", Name: "Carpa 3x3", Tracking: scheduling.TrackingSerialized})
	for i := 1; i <= 10; i++ {
		st := scheduling.SerialAvailable
		switch i {
		case 9, 10:
			st = scheduling.SerialRetired
		case 8:
			st = scheduling.SerialLost
		}
		s.AddSerialUnit(scheduling.SerialUnit{
			ID: fmt.Sprintf("u%d", i), ItemID: "carpa-3x3", SerialNumber: fmt.Sprintf("C-%02d", i), State: st,
		})
	}
	s.AddWorkOrder(scheduling.WorkOrder{ID: "wo-1", RentalID: "r-1", Type: scheduling.OrderMontaje,
		Status: scheduling.OrderProgramada, ScheduledDate: day(t, "2025-02-10")})
	for _, u := range []string{"u1", "u2"} {
		s.AddCommitment(scheduling.Commitment{WorkOrderID: "wo-1", Kind: scheduling.ResourceEquipment,
			ItemID: "carpa-3x3", SerialUnitID: u, Interval: span(t, "2025-02-10", "2025-02-12")})
	}
	return s
}

func TestCheckSerialized(t *testing.T) {
	s := carpaStore(t)
	c := &Calculator{Ledger: s, Commitments: s}

	got, err := c.Check(context.Background(), Query{ItemID: "carpa-3x3", Interval: span(t, "2025-02-11", "2025-02-11")})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got.TotalStock != 7 || got.Occupied != 2 || got.Available != 5 {
		t.Fatalf("got total=%d occupied=%d available=%d, want 7/2/5", got.TotalStock, got.Occupied, got.Available)
	}
	if got.Source != SourceSerialized || got.LegacyFallback() {
		t.Fatalf("source = %s", got.Source)
	}
}

func TestCheckOverlapBoundaries(t *testing.T) {
	s := carpaStore(t)
	c := &Calculator{Ledger: s, Commitments: s}

	cases := []struct {
		from, to string
		occupied int
	}{
		{"2025-02-09", "2025-02-09", 0},
		{"2025-02-09", "2025-02-10", 2}, // touches first day
		{"2025-02-12", "2025-02-12", 2}, // last day is inclusive
		{"2025-02-13", "2025-02-13", 0},
		{"2025-02-01", "2025-02-28", 2},
	}
	for _, tc := range cases {
		t.Run(tc.from+".."+tc.to, func(t *testing.T) {
			got, err := c.Check(context.Background(), Query{ItemID: "carpa-3x3", Interval: span(t, tc.from, tc.to)})
			if err != nil {
				t.Fatal(err)
			}
			if got.Occupied != tc.occupied {
				t.Fatalf("occupied = %d, want %d", got.Occupied, tc.occupied)
			}
			if got.Available != got.TotalStock-got.Occupied {
				t.Fatalf("available %d != total %d - occupied %d", got.Available, got.TotalStock, got.Occupied)
			}
		})
	}
}

func TestCheckIgnoresInactiveAndExcludedOrders(t *testing.T) {
	s := carpaStore(t)
	c := &Calculator{Ledger: s, Commitments: s}
	q := Query{ItemID: "carpa-3x3", Interval: span(t, "2025-02-11", "2025-02-11")}

	q.ExcludeOrderID = "wo-1"
	got, err := c.Check(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if got.Occupied != 0 {
		t.Fatalf("excluded order still counted: occupied = %d", got.Occupied)
	}

	q.ExcludeOrderID = ""
	s.SetOrderStatus("wo-1", scheduling.OrderCancelada)
	got, err = c.Check(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if got.Occupied != 0 || got.Available != 7 {
		t.Fatalf("cancelled order still counted: %+v", got)
	}
}

func TestCheckNeverNegative(t *testing.T) {
	s := memstore.New()
	s.AddItem(scheduling.EquipmentItem{ID: "silla", Tracking: scheduling.TrackingLot})
	s.AddLot(scheduling.Lot{ID: "l1", ItemID: "silla", LotNumber: "L1", Quantity: 10, State: scheduling.LotActive})
	s.AddCommitment(scheduling.Commitment{WorkOrderID: "wo-x", Kind: scheduling.ResourceEquipment,
		ItemID: "silla", LotID: "l1", Quantity: 14, Interval: span(t, "2025-05-01", "2025-05-01")})

	c := &Calculator{Ledger: s, Commitments: s}
	got, err := c.Check(context.Background(), Query{ItemID: "silla", Interval: span(t, "2025-05-01", "2025-05-01")})
	if err != nil {
		t.Fatal(err)
	}
	if got.Available != 0 || got.Occupied != 14 {
		t.Fatalf("got %+v, want available 0 occupied 14", got)
	}
}

func TestCheckLots(t *testing.T) {
	s := memstore.New()
	s.AddItem(scheduling.EquipmentItem{ID: "mesa", Tracking: scheduling.TrackingLot, RawQuantity: 999})
	s.AddLot(scheduling.Lot{ID: "l1", ItemID: "mesa", LotNumber: "L1", Quantity: 30, State: scheduling.LotActive})
	s.AddLot(scheduling.Lot{ID: "l2", ItemID: "mesa", LotNumber: "L2", Quantity: 20, State: scheduling.LotActive})
	s.AddLot(scheduling.Lot{ID: "l3", ItemID: "mesa", LotNumber: "L3", Quantity: 15, State: scheduling.LotQuarantine})
	s.AddCommitment(scheduling.Commitment{WorkOrderID: "wo-a", Kind: scheduling.ResourceEquipment,
		ItemID: "mesa", LotID: "l1", Quantity: 12, Interval: span(t, "2025-06-01", "2025-06-03")})
	s.AddCommitment(scheduling.Commitment{WorkOrderID: "wo-b", Kind: scheduling.ResourceEquipment,
		ItemID: "mesa", LotID: "l2", Quantity: 8, Interval: span(t, "2025-06-03", "2025-06-04")})

	c := &Calculator{Ledger: s, Commitments: s}
	got, err := c.Check(context.Background(), Query{ItemID: "mesa", Interval: span(t, "2025-06-03", "2025-06-03")})
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != SourceLot || got.TotalStock != 50 || got.Occupied != 20 || got.Available != 30 {
		t.Fatalf("got %+v, want lot 50/20/30", got)
	}
}

func TestCheckLegacyFallback(t *testing.T) {
	s := memstore.New()
	s.AddItem(scheduling.EquipmentItem{ID: "tarima", Tracking: scheduling.TrackingSerialized, RawQuantity: 6})
	s.AddCommitment(scheduling.Commitment{WorkOrderID: "wo-a", Kind: scheduling.ResourceEquipment,
		ItemID: "tarima", Quantity: 4, Interval: span(t, "2025-07-01", "2025-07-01")})

	c := &Calculator{Ledger: s, Commitments: s}
	got, err := c.Check(context.Background(), Query{ItemID: "tarima", Interval: span(t, "2025-07-01", "2025-07-01")})
	if err != nil {
		t.Fatal(err)
	}
	if !got.LegacyFallback() || got.TotalStock != 6 || got.Available != 2 {
		t.Fatalf("got %+v, want raw_quantity 6/4/2", got)
	}
}

func TestCheckErrors(t *testing.T) {
	s := carpaStore(t)
	c := &Calculator{Ledger: s, Commitments: s}
	iv := span(t, "2025-02-11", "2025-02-11")

	_, err := c.Check(context.Background(), Query{ItemID: "missing", Interval: iv})
	if !errors.Is(err, scheduling.ErrNotFound) {
		t.Fatalf("unknown item: err = %v, want ErrNotFound", err)
	}

	boom := errors.New("connection reset")
	s.InjectError(memstore.OpItemCommitments, "carpa-3x3", boom)
	_, err = c.Check(context.Background(), Query{ItemID: "carpa-3x3", Interval: iv})
	if !errors.Is(err, scheduling.ErrAvailabilityCheckFailed) || !errors.Is(err, boom) {
		t.Fatalf("store failure: err = %v, want ErrAvailabilityCheckFailed wrapping cause", err)
	}

	_, err = c.Check(context.Background(), Query{ItemID: "carpa-3x3", Interval: scheduling.Interval{
		From: day(t, "2025-02-12"), To: day(t, "2025-02-10"),
	}})
	if !errors.Is(err, scheduling.ErrValidation) {
		t.Fatalf("reversed interval: err = %v, want ErrValidation", err)
	}
}

func TestIsSerialAvailable(t *testing.T) {
	s := carpaStore(t)
	c := &Calculator{Ledger: s, Commitments: s}
	ctx := context.Background()

	cases := []struct {
		name    string
		unit    string
		date    string
		exclude string
		want    bool
	}{
		{"committed", "u1", "2025-02-11", "", false},
		{"free", "u3", "2025-02-11", "", true},
		{"after commitment", "u1", "2025-02-13", "", true},
		{"own order excluded", "u1", "2025-02-11", "wo-1", true},
		{"retired", "u9", "2025-03-01", "", false},
		{"lost", "u8", "2025-03-01", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.IsSerialAvailable(ctx, tc.unit, day(t, tc.date), tc.exclude)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("IsSerialAvailable(%s, %s) = %v, want %v", tc.unit, tc.date, got, tc.want)
			}
		})
	}

	if _, err := c.IsSerialAvailable(ctx, "nope", day(t, "2025-02-11"), ""); !errors.Is(err, scheduling.ErrNotFound) {
		t.Fatalf("unknown unit: err = %v", err)
	}

	boom := errors.New("connection reset")
	s.InjectError(memstore.OpGetUnit, "u3", boom)
	if _, err := c.IsSerialAvailable(ctx, "u3", day(t, "2025-02-11"), ""); !errors.Is(err, scheduling.ErrAvailabilityCheckFailed) || !errors.Is(err, boom) {
		t.Fatalf("unit lookup failure: err = %v, want ErrAvailabilityCheckFailed wrapping cause", err)
	}
}

func TestCheckLines(t *testing.T) {
	s := carpaStore(t)
	s.AddItem(scheduling.EquipmentItem{ID: "broken"})
	s.InjectError(memstore.OpListUnits, "broken", errors.New("timeout"))
	c := &Calculator{Ledger: s, Commitments: s}

	lines := []Line{
		{ItemID: "carpa-3x3", Quantity: 3},
		{ItemID: "carpa-3x3", Quantity: 8},
		{ItemID: "broken", Quantity: 1},
		{ItemID: "missing", Quantity: 1},
	}
	got := c.CheckLines(context.Background(), span(t, "2025-02-10", "2025-02-10"), lines)
	if len(got) != len(lines) {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Shortfall != 0 || got[0].Error != "" {
		t.Fatalf("line 0: %+v", got[0])
	}
	if got[1].Shortfall != 3 {
		t.Fatalf("line 1 shortfall = %d, want 3", got[1].Shortfall)
	}
	if got[2].Error == "" || got[3].Error == "" {
		t.Fatalf("failed lines must carry their error: %+v %+v", got[2], got[3])
	}
	for i, r := range got {
		if r.ItemID != lines[i].ItemID {
			t.Fatalf("result %d out of order: %s", i, r.ItemID)
		}
	}
}
