package scheduling

import "testing"

func TestCanTransitionAlert(t *testing.T) {
	cases := []struct {
		from, to AlertStatus
		want     bool
	}{
		{AlertPendiente, AlertResuelta, true},
		{AlertPendiente, AlertDescartada, true},
		{AlertPendiente, AlertEscalada, true},
		{AlertEscalada, AlertEscalada, true},
		{AlertEscalada, AlertResuelta, false},
		{AlertResuelta, AlertPendiente, false},
		{AlertDescartada, AlertEscalada, false},
	}
	for _, tc := range cases {
		if got := CanTransitionAlert(tc.from, tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCanTransitionOrder(t *testing.T) {
	if !CanTransitionOrder(OrderPendiente, OrderProgramada) || CanTransitionOrder(OrderCompletada, OrderEnCurso) {
		t.Fatal("unexpected order transitions")
	}
	for _, st := range []OrderStatus{OrderPendiente, OrderProgramada, OrderEnCurso} {
		if !st.Active() {
			t.Errorf("%s must be active", st)
		}
	}
	if OrderCancelada.Active() || OrderCompletada.Active() {
		t.Error("closed orders must not hold resources")
	}
}

func TestAlertSeverityNext(t *testing.T) {
	cases := map[AlertSeverity]AlertSeverity{
		AlertBaja:    AlertMedia,
		AlertMedia:   AlertAlta,
		AlertAlta:    AlertCritica,
		AlertCritica: AlertCritica,
	}
	for in, want := range cases {
		if got := in.Next(); got != want {
			t.Errorf("%s.Next() = %s, want %s", in, got, want)
		}
	}
}

func TestSeverityMapping(t *testing.T) {
	cases := map[Severity]AlertSeverity{
		SeverityInfo:        AlertBaja,
		SeverityAdvertencia: AlertMedia,
		SeverityAlto:        AlertAlta,
		SeverityCritico:     AlertCritica,
	}
	for in, want := range cases {
		if got := in.AlertSeverity(); got != want {
			t.Errorf("%s -> %s, want %s", in, got, want)
		}
	}
	if !SeverityAlto.AtLeast(SeverityAdvertencia) || SeverityInfo.AtLeast(SeverityAdvertencia) {
		t.Error("AtLeast ordering broken")
	}
	if _, ok := ParseSeverity("grave"); ok {
		t.Error("unknown severity accepted")
	}
}
