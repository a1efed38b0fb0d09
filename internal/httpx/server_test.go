package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/go-rental-scheduling/internal/alerts"
	"github.com/ariefcatur/go-rental-scheduling/internal/availability"
	"github.com/ariefcatur/go-rental-scheduling/internal/conflict"
	"github.com/ariefcatur/go-rental-scheduling/internal/memstore"
	"github.com/ariefcatur/go-rental-scheduling/internal/reschedule"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T) (*httptest.Server, *memstore.Store) {
	t.Helper()
	s := memstore.New()
	s.AddItem(scheduling.EquipmentItem{ID: "carpa", Tracking: scheduling.TrackingSerialized})
	for i := 1; i <= 4; i++ {
		id := fmt.Sprintf("u%d", i)
		s.AddSerialUnit(scheduling.SerialUnit{ID: id, ItemID: "carpa", SerialNumber: id, State: scheduling.SerialAvailable})
	}
	d := func(v string) time.Time { x, _ := scheduling.ParseDate(v); return x }
	s.AddWorkOrder(scheduling.WorkOrder{ID: "wo-busy", RentalID: "r-0", Type: scheduling.OrderMontaje,
		Status: scheduling.OrderProgramada, ScheduledDate: d("2025-05-10")})
	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		s.AddCommitment(scheduling.Commitment{WorkOrderID: "wo-busy", Kind: scheduling.ResourceEquipment,
			ItemID: "carpa", SerialUnitID: u, Interval: scheduling.SingleDay(d("2025-05-10"))})
	}
	s.AddWorkOrder(scheduling.WorkOrder{ID: "wo-1", RentalID: "r-1", Type: scheduling.OrderMontaje,
		Status: scheduling.OrderProgramada, ScheduledDate: d("2025-05-01"),
		Equipment: []scheduling.EquipmentLine{{ItemID: "carpa", Quantity: 10}}})

	calc := &availability.Calculator{Ledger: s, Commitments: s}
	det := &conflict.Detector{Orders: s, Availability: calc, Commitments: s, Policy: conflict.DefaultPolicy()}
	rec := &alerts.Recorder{Store: s, Policy: conflict.DefaultPolicy()}

	r := NewRouter()
	(&SchedulingHandler{
		Availability: calc,
		Quotes:       calc,
		Detector:     det,
		Rescheduler:  &reschedule.Service{Validator: det, Orders: s, Alerts: rec},
		Alerts:       rec,
	}).Register(r)
	(&AlertsHandler{Recorder: rec}).Register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, s
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	res, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	defer res.Body.Close()
	var v T
	if err := json.NewDecoder(res.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestAvailabilityEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Get(srv.URL + "/equipment/carpa/availability?from=2025-05-09&to=2025-05-10")
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	got := decode[availability.Result](t, res)
	if got.TotalStock != 4 || got.Occupied != 4 || got.Available != 0 {
		t.Fatalf("result = %+v", got)
	}

	cases := map[string]int{
		"/equipment/nope/availability?from=2025-05-09":                http.StatusNotFound,
		"/equipment/carpa/availability?from=09-05-2025":               http.StatusBadRequest,
		"/equipment/carpa/availability?from=2025-05-10&to=2025-05-01": http.StatusBadRequest,
	}
	for path, want := range cases {
		res, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		res.Body.Close()
		if res.StatusCode != want {
			t.Errorf("%s: status = %d, want %d", path, res.StatusCode, want)
		}
	}
}

func TestQuotationEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	res := post(t, srv.URL+"/quotations/availability", QuotationReq{
		From: "2025-05-11", To: "2025-05-12",
		Lines: []availability.Line{{ItemID: "carpa", Quantity: 6}, {ItemID: "nope", Quantity: 1}},
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	got := decode[QuotationResp](t, res)
	if got.Shortfall != 2 || got.Complete || len(got.Lines) != 2 {
		t.Fatalf("quotation = %+v", got)
	}
}

func TestValidateAndRescheduleEndpoints(t *testing.T) {
	srv, s := newTestServer(t)

	res := post(t, srv.URL+"/work-orders/wo-1/validate-date", DateReq{Date: "2025-05-10"})
	rep := decode[scheduling.Report](t, res)
	if res.StatusCode != http.StatusOK || rep.Severity != scheduling.SeverityCritico || !rep.RequiresApproval {
		t.Fatalf("validate: %d %+v", res.StatusCode, rep)
	}

	res = post(t, srv.URL+"/work-orders/wo-1/reschedule", RescheduleReq{Date: "2025-05-10"})
	res.Body.Close()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("reschedule without override: status = %d", res.StatusCode)
	}

	res = post(t, srv.URL+"/work-orders/wo-1/reschedule", RescheduleReq{Date: "2025-05-10", Override: true, RequestedBy: "gerente"})
	out := decode[reschedule.Outcome](t, res)
	if res.StatusCode != http.StatusOK || !out.Applied || len(out.Alerts) != 1 {
		t.Fatalf("override: %d %+v", res.StatusCode, out)
	}
	o, _ := s.GetWorkOrder(context.Background(), "wo-1")
	if o.ScheduledDate.Format(scheduling.DateLayout) != "2025-05-10" {
		t.Fatalf("date = %s", o.ScheduledDate)
	}

	res = post(t, srv.URL+"/work-orders/nope/validate-date", DateReq{Date: "2025-05-10"})
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown order: status = %d", res.StatusCode)
	}
}

func TestAlertEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	res := post(t, srv.URL+"/work-orders/wo-1/alerts", DateReq{Date: "2025-05-10"})
	created := decode[RecordAlertsResp](t, res)
	if res.StatusCode != http.StatusCreated || len(created.Alerts) != 1 {
		t.Fatalf("record: %d %+v", res.StatusCode, created)
	}
	id := created.Alerts[0].ID

	res, err := http.Get(srv.URL + "/alerts?status=pendiente&kind=equipment")
	if err != nil {
		t.Fatal(err)
	}
	if list := decode[[]scheduling.Alert](t, res); len(list) != 1 || list[0].ID != id {
		t.Fatalf("list = %+v", list)
	}

	// already critica: escalation keeps the severity and moves the status
	res = post(t, srv.URL+"/alerts/"+id+"/escalate", EscalateReq{Notes: "cliente VIP"})
	if a := decode[scheduling.Alert](t, res); a.Status != scheduling.AlertEscalada || a.Severity != scheduling.AlertCritica {
		t.Fatalf("escalate = %+v", a)
	}

	res = post(t, srv.URL+"/alerts/"+id+"/resolve", ResolveReq{ResolverID: "ana", Notes: "subarrendado"})
	res.Body.Close()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("resolve escalated: status = %d", res.StatusCode)
	}

	res = post(t, srv.URL+"/work-orders/wo-1/alerts", DateReq{Date: "2025-05-11"})
	second := decode[RecordAlertsResp](t, res)
	if len(second.Alerts) != 1 {
		t.Fatalf("second record = %+v", second)
	}
	res = post(t, srv.URL+"/alerts/"+second.Alerts[0].ID+"/resolve", ResolveReq{ResolverID: "ana", Outcome: "descartada"})
	if a := decode[scheduling.Alert](t, res); res.StatusCode != http.StatusOK || a.Status != scheduling.AlertDescartada {
		t.Fatalf("resolve: %d %+v", res.StatusCode, a)
	}

	res, err = http.Get(srv.URL + "/alerts/summary")
	if err != nil {
		t.Fatal(err)
	}
	if sum := decode[alerts.Summary](t, res); sum.Pending != 0 {
		t.Fatalf("summary = %+v", sum)
	}
}
