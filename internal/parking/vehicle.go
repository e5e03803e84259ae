package parking

import "time"

// Vehicle is the registry record of a vehicle. It is created on the first park
// call for an ID and kept across every later park/unpark cycle.
type Vehicle struct {
	ID   string
	Size Size
	// EntryTime is the start of the billed session, nil before the first park.
	EntryTime *time.Time
	// LastExitTime is nil until the vehicle leaves for the first time.
	LastExitTime *time.Time
	// LastParkingSlotID is the slot the vehicle occupied before its last exit.
	LastParkingSlotID *int

	slot *Slot
}

func NewVehicle(id string, size Size) *Vehicle {
	return &Vehicle{
		ID:   id,
		Size: size,
	}
}

// IsParked reports whether the vehicle currently occupies a slot.
func (v *Vehicle) IsParked() bool {
	return v.slot != nil
}

// SlotID returns the id of the occupied slot.
func (v *Vehicle) SlotID() (int, bool) {
	if v.slot == nil {
		return 0, false
	}
	return v.slot.ID, true
}

func (v *Vehicle) startSession(now time.Time) {
	v.EntryTime = &now
}

func (v *Vehicle) recordExit(now time.Time, slotID int) {
	v.LastExitTime = &now
	v.LastParkingSlotID = &slotID
}

// snapshot copies the record so callers cannot reach the registry's
// timestamps or slot through it.
func (v *Vehicle) snapshot() Vehicle {
	c := *v
	if v.EntryTime != nil {
		t := *v.EntryTime
		c.EntryTime = &t
	}
	if v.LastExitTime != nil {
		t := *v.LastExitTime
		c.LastExitTime = &t
	}
	if v.LastParkingSlotID != nil {
		id := *v.LastParkingSlotID
		c.LastParkingSlotID = &id
	}
	if v.slot != nil {
		s := v.slot.snapshot()
		c.slot = &s
	}
	return c
}
