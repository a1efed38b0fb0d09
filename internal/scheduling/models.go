package scheduling

import "time"

type TrackingMode string

const (
	TrackingSerialized TrackingMode = "serialized"
	TrackingLot        TrackingMode = "lot"
)

type EquipmentItem struct {
	ID       string
	Name     string
	Tracking TrackingMode // fixed at creation
	// RawQuantity is the legacy on-hand figure. Only read when the item has
	// neither serial units nor lots.
	RawQuantity int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type SerialState string

const (
	SerialAvailable   SerialState = "available"
	SerialRented      SerialState = "rented"
	SerialMaintenance SerialState = "maintenance"
	SerialDamaged     SerialState = "damaged"
	SerialLost        SerialState = "lost"
	SerialRetired     SerialState = "retired"
)

// CountsTowardStock reports whether a unit in this state is part of the
// rentable fleet. Lost and retired units never come back.
func (s SerialState) CountsTowardStock() bool {
	return s != SerialLost && s != SerialRetired
}

// StockSerialStates lists every state that counts toward total stock.
var StockSerialStates = []SerialState{SerialAvailable, SerialRented, SerialMaintenance, SerialDamaged}

type SerialUnit struct {
	ID           string
	ItemID       string
	SerialNumber string
	State        SerialState
}

type LotState string

const (
	LotActive     LotState = "active"
	LotQuarantine LotState = "quarantine"
	LotDepleted   LotState = "depleted"
	LotRetired    LotState = "retired"
)

type Lot struct {
	ID        string
	ItemID    string
	LotNumber string
	Quantity  int
	State     LotState
}

type ResourceKind string

const (
	ResourceEquipment ResourceKind = "equipment"
	ResourceCrew      ResourceKind = "crew"
	ResourceVehicle   ResourceKind = "vehicle"
)

// Commitment allocates one resource to a work order over an occupancy
// interval. Equipment commitments carry ItemID plus either SerialUnitID, or a
// Quantity drawn from LotID or from the item's raw quantity.
type Commitment struct {
	ID           string
	WorkOrderID  string
	Kind         ResourceKind
	ItemID       string
	SerialUnitID string
	LotID        string
	EmployeeID   string
	VehicleID    string
	Quantity     int
	Interval     Interval
	// OrderStatus is the owning work order's status at read time; commitments
	// of cancelled or completed orders stop counting.
	OrderStatus OrderStatus
}

// Units is how many units of stock the commitment occupies.
func (c Commitment) Units() int {
	if c.SerialUnitID != "" {
		return 1
	}
	if c.Quantity < 0 {
		return 0
	}
	return c.Quantity
}

func (c Commitment) Active() bool { return c.OrderStatus.Active() }

// CommitmentFilter selects commitments of one resource. Exactly one of ItemID,
// SerialUnitID, EmployeeID, VehicleID is expected to be set.
type CommitmentFilter struct {
	ItemID         string
	SerialUnitID   string
	EmployeeID     string
	VehicleID      string
	Interval       Interval
	ExcludeOrderID string
}

// Matches applies the filter to a commitment, ignoring order status.
func (f CommitmentFilter) Matches(c Commitment) bool {
	switch {
	case f.ItemID != "" && c.ItemID != f.ItemID:
		return false
	case f.SerialUnitID != "" && c.SerialUnitID != f.SerialUnitID:
		return false
	case f.EmployeeID != "" && c.EmployeeID != f.EmployeeID:
		return false
	case f.VehicleID != "" && c.VehicleID != f.VehicleID:
		return false
	case f.ExcludeOrderID != "" && c.WorkOrderID == f.ExcludeOrderID:
		return false
	}
	return c.Interval.Overlaps(f.Interval)
}

type OrderType string

const (
	OrderMontaje    OrderType = "montaje"
	OrderDesmontaje OrderType = "desmontaje"
)

// Pair returns the opposite operation of the same rental.
func (t OrderType) Pair() OrderType {
	if t == OrderMontaje {
		return OrderDesmontaje
	}
	return OrderMontaje
}

// EquipmentLine is one equipment requirement of a work order: a specific
// serial unit, or a quantity of an item.
type EquipmentLine struct {
	ItemID       string `json:"item_id"`
	SerialUnitID string `json:"serial_unit_id,omitempty"`
	LotID        string `json:"lot_id,omitempty"`
	Quantity     int    `json:"quantity"`
}

func (l EquipmentLine) SerialBound() bool { return l.SerialUnitID != "" }

type WorkOrder struct {
	ID            string
	RentalID      string
	Type          OrderType
	Status        OrderStatus
	ScheduledDate time.Time
	VehicleID     string // empty when no vehicle is assigned
	Crew          []string
	Equipment     []EquipmentLine
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (o WorkOrder) HasVehicle() bool { return o.VehicleID != "" }
