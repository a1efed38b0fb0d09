package scheduling

type OrderStatus string

const (
	OrderPendiente  OrderStatus = "pendiente"
	OrderProgramada OrderStatus = "programada"
	OrderEnCurso    OrderStatus = "en_curso"
	OrderCompletada OrderStatus = "completada"
	OrderCancelada  OrderStatus = "cancelada"
)

var validNextOrder = map[OrderStatus]map[OrderStatus]bool{
	OrderPendiente:  {OrderProgramada: true, OrderCancelada: true},
	OrderProgramada: {OrderEnCurso: true, OrderCancelada: true},
	OrderEnCurso:    {OrderCompletada: true, OrderCancelada: true},
	OrderCompletada: {},
	OrderCancelada:  {},
}

func CanTransitionOrder(from, to OrderStatus) bool {
	return validNextOrder[from][to]
}

// Active reports whether commitments of an order in this status still
// occupy their resources.
func (s OrderStatus) Active() bool {
	return s != OrderCancelada && s != OrderCompletada
}

type AlertStatus string

const (
	AlertPendiente  AlertStatus = "pendiente"
	AlertResuelta   AlertStatus = "resuelta"
	AlertDescartada AlertStatus = "descartada"
	AlertEscalada   AlertStatus = "escalada"
)

var validNextAlert = map[AlertStatus]map[AlertStatus]bool{
	AlertPendiente:  {AlertResuelta: true, AlertDescartada: true, AlertEscalada: true},
	AlertEscalada:   {AlertEscalada: true},
	AlertResuelta:   {},
	AlertDescartada: {},
}

func CanTransitionAlert(from, to AlertStatus) bool {
	return validNextAlert[from][to]
}

// AlertSeverity is ordinal: baja < media < alta < critica.
type AlertSeverity string

const (
	AlertBaja    AlertSeverity = "baja"
	AlertMedia   AlertSeverity = "media"
	AlertAlta    AlertSeverity = "alta"
	AlertCritica AlertSeverity = "critica"
)

var alertSeverityScale = []AlertSeverity{AlertBaja, AlertMedia, AlertAlta, AlertCritica}

func (s AlertSeverity) Rank() int {
	for i, v := range alertSeverityScale {
		if v == s {
			return i
		}
	}
	return -1
}

func (s AlertSeverity) Valid() bool { return s.Rank() >= 0 }

// Next is one step up the scale, capped at critica.
func (s AlertSeverity) Next() AlertSeverity {
	r := s.Rank()
	if r < 0 || r == len(alertSeverityScale)-1 {
		return s
	}
	return alertSeverityScale[r+1]
}
