package alerts

import (
	"context"
	"errors"
	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-rental-scheduling/internal/memstore"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"testing"
	"time"
)

func TestHandleConflictDetected(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	f := newRecorder()
	svc := &Service{Recorder: f.rec, Redis: rdb, ServiceName: "alerts-test"}

	out := &fakePublisher{}
	rep := scheduling.Report{
		OrderID:       "wo-7",
		CandidateDate: time.Date(2025, 2, 11, 0, 0, 0, 0, time.UTC),
		Severity:      scheduling.SeverityAdvertencia,
		Findings:      []scheduling.Finding{crewFinding("emp-1")},
		CheckedAt:     time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC),
	}
	PublishConflict(out, "api", "trace-1", rep)
	if len(out.msgs) != 1 || string(out.msgs[0].Key) != "wo-7" {
		t.Fatalf("published = %+v", out.msgs)
	}
	msg := out.msgs[0]

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := svc.HandleConflictDetected(ctx, msg); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	as, err := f.store.ListAlerts(ctx, scheduling.AlertFilter{SourceOrderID: "wo-7"})
	if err != nil {
		t.Fatal(err)
	}
	if len(as) != 1 || as[0].Kind != scheduling.FindingCrew {
		t.Fatalf("alerts = %+v, want one crew alert despite redelivery", as)
	}
	if len(mr.Keys()) != 1 {
		t.Fatalf("dedup keys = %v", mr.Keys())
	}
}

func TestHandleConflictDetectedIgnoresOtherEvents(t *testing.T) {
	f := newRecorder()
	svc := &Service{Recorder: f.rec, ServiceName: "alerts-test"}

	other := &fakePublisher{}
	a, err := f.rec.Record(context.Background(), []scheduling.Finding{crewFinding("emp-1")}, "wo-1")
	if err != nil {
		t.Fatal(err)
	}
	f.rec.publish(other, scheduling.EventAlertRaised, a, "")

	if err := svc.HandleConflictDetected(context.Background(), other.msgs[0]); err != nil {
		t.Fatal(err)
	}
	if err := svc.HandleConflictDetected(context.Background(), kafkago.Message{Value: []byte("{")}); err != nil {
		t.Fatalf("malformed message must be dropped, not retried: %v", err)
	}
	as, _ := f.store.ListAlerts(context.Background(), scheduling.AlertFilter{})
	if len(as) != 1 {
		t.Fatalf("alerts = %d, want 1", len(as))
	}
}

func TestHandleConflictDetectedRetryDoesNotDuplicate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	f := newRecorder()
	svc := &Service{Recorder: f.rec, Redis: rdb, ServiceName: "alerts-test"}

	out := &fakePublisher{}
	PublishConflict(out, "api", "", scheduling.Report{
		OrderID:  "wo-8",
		Severity: scheduling.SeverityAlto,
		Findings: []scheduling.Finding{
			{Kind: scheduling.FindingEquipment, ResourceID: "carpa", Required: 4, Shortfall: 3},
			crewFinding("emp-1"),
		},
	})
	ctx := context.Background()

	// the crew alert cannot be stored on the first delivery
	f.store.InjectError(memstore.OpPersistAlert, string(scheduling.FindingCrew), errors.New("db down"))
	if err := svc.HandleConflictDetected(ctx, out.msgs[0]); err == nil {
		t.Fatal("first delivery must fail")
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("dedup key written for a failed delivery: %v", mr.Keys())
	}

	f.store.InjectError(memstore.OpPersistAlert, string(scheduling.FindingCrew), nil)
	if err := svc.HandleConflictDetected(ctx, out.msgs[0]); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	as, err := f.store.ListAlerts(ctx, scheduling.AlertFilter{SourceOrderID: "wo-8"})
	if err != nil {
		t.Fatal(err)
	}
	kinds := map[scheduling.FindingKind]int{}
	for _, a := range as {
		kinds[a.Kind]++
	}
	if len(as) != 2 || kinds[scheduling.FindingEquipment] != 1 || kinds[scheduling.FindingCrew] != 1 {
		t.Fatalf("alerts by kind = %v, want one equipment and one crew", kinds)
	}
	if n := len(f.raised.msgs); n != 2 {
		t.Fatalf("raised events = %d, want 2", n)
	}
}
