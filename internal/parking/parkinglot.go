package parking

import (
	"fmt"
	"sort"
	"time"
)

// MinEntryPoints is the smallest entry point count a lot is configured with.
const MinEntryPoints = 3

type Option func(*ParkingLot)

// WithClock replaces the wall clock used for entry and exit times.
func WithClock(clock Clock) Option {
	return func(pl *ParkingLot) {
		pl.clock = clock
	}
}

// ParkingLot owns the slots and the registry of every vehicle seen so far.
// It is not safe for concurrent use; InstrumentedParkingLot serializes access.
type ParkingLot struct {
	entryPoints int
	// reach is the length of the shortest distance vector, the exclusive
	// bound for entry points that every slot can answer.
	reach    int
	slots    []*Slot
	vehicles map[string]*Vehicle
	clock    Clock
}

// NewParkingLot builds a lot from parallel per-slot distance vectors and sizes.
// Slot ids follow input order.
func NewParkingLot(entryPoints int, distances [][]int, sizes []Size, opts ...Option) (*ParkingLot, error) {
	if len(distances) != len(sizes) {
		return nil, fmt.Errorf("%w: %d distance vectors for %d sizes", ErrInvalidLayout, len(distances), len(sizes))
	}

	slots := make([]*Slot, len(distances))
	reach := 0
	for i, d := range distances {
		if !sizes[i].Valid() {
			return nil, fmt.Errorf("%w: slot %d has size %d", ErrInvalidLayout, i, sizes[i])
		}
		if len(d) == 0 {
			return nil, fmt.Errorf("%w: slot %d has no distances", ErrInvalidLayout, i)
		}
		if i == 0 || len(d) < reach {
			reach = len(d)
		}
		slots[i] = NewSlot(i, sizes[i], d)
	}

	pl := &ParkingLot{
		entryPoints: max(MinEntryPoints, entryPoints),
		reach:       reach,
		slots:       slots,
		vehicles:    make(map[string]*Vehicle),
		clock:       SystemClock,
	}
	for _, opt := range opts {
		opt(pl)
	}

	return pl, nil
}

// EntryPoints returns the configured entry point count. It is informational
// and does not bound the entry points accepted by Park.
func (pl *ParkingLot) EntryPoints() int {
	return pl.entryPoints
}

func (pl *ParkingLot) Capacity() int {
	return len(pl.slots)
}

// FindNearestSlot returns the free slot closest to entryPoint that fits size.
// Ties go to the lowest slot id.
func (pl *ParkingLot) FindNearestSlot(size Size, entryPoint int) (Slot, error) {
	if err := pl.validate(size, entryPoint); err != nil {
		return Slot{}, err
	}

	slot := pl.nearest(size, entryPoint)
	if slot == nil {
		return Slot{}, ErrNoSlotAvailable
	}
	return slot.snapshot(), nil
}

// Park seats a vehicle and returns the slot id.
//
// A vehicle returning within GracePeriod of its last exit and within
// FreeWindow of its entry keeps its entry time and gets its previous slot
// back when that slot is free. Any other park starts a new session.
func (pl *ParkingLot) Park(vehicleID string, size Size, entryPoint int) (int, error) {
	if err := pl.validate(size, entryPoint); err != nil {
		return 0, err
	}

	now := pl.clock.Now()

	vehicle, known := pl.vehicles[vehicleID]
	if !known {
		vehicle = NewVehicle(vehicleID, size)
		vehicle.startSession(now)
		pl.vehicles[vehicleID] = vehicle

		return pl.seat(vehicle, pl.nearest(size, entryPoint))
	}

	if vehicle.IsParked() {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyParked, vehicleID)
	}

	if returning(vehicle, now) {
		slot := pl.previousSlot(vehicle)
		if slot == nil {
			slot = pl.nearest(size, entryPoint)
		}
		return pl.seat(vehicle, slot)
	}

	vehicle.startSession(now)
	return pl.seat(vehicle, pl.nearest(size, entryPoint))
}

// Unpark frees the vehicle's slot and returns the fee of the session. The
// stored exit time is always the clock's now; exitOverride only changes the
// exit time used for the fee.
func (pl *ParkingLot) Unpark(vehicleID string, exitOverride *time.Time) (float64, error) {
	vehicle, ok := pl.vehicles[vehicleID]
	if !ok || !vehicle.IsParked() {
		return 0, fmt.Errorf("%w: %s", ErrVehicleNotParked, vehicleID)
	}

	slot := vehicle.slot
	slot.Leave(vehicle)
	vehicle.recordExit(pl.clock.Now(), slot.ID)

	return pl.fee(vehicle, exitOverride), nil
}

// CalculateFees returns the fee of the vehicle's current or last session.
// Without an override the exit time is the last recorded exit, or now while
// the vehicle is still parked.
func (pl *ParkingLot) CalculateFees(vehicleID string, exitOverride *time.Time) (float64, error) {
	vehicle, ok := pl.vehicles[vehicleID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrVehicleNotFound, vehicleID)
	}
	return pl.fee(vehicle, exitOverride), nil
}

// WithinGracePeriod reports whether parking the vehicle now would resume its
// previous session.
func (pl *ParkingLot) WithinGracePeriod(vehicleID string) bool {
	vehicle, ok := pl.vehicles[vehicleID]
	if !ok || vehicle.IsParked() {
		return false
	}
	return returning(vehicle, pl.clock.Now())
}

func (pl *ParkingLot) Slot(id int) (Slot, bool) {
	if id < 0 || id >= len(pl.slots) {
		return Slot{}, false
	}
	return pl.slots[id].snapshot(), true
}

// Slots returns a copy of every slot in id order.
func (pl *ParkingLot) Slots() []Slot {
	res := make([]Slot, len(pl.slots))
	for i, s := range pl.slots {
		res[i] = s.snapshot()
	}
	return res
}

func (pl *ParkingLot) Vehicle(id string) (Vehicle, bool) {
	v, ok := pl.vehicles[id]
	if !ok {
		return Vehicle{}, false
	}
	return v.snapshot(), true
}

// Vehicles returns a copy of the registry sorted by vehicle id.
func (pl *ParkingLot) Vehicles() []Vehicle {
	res := make([]Vehicle, 0, len(pl.vehicles))
	for _, v := range pl.vehicles {
		res = append(res, v.snapshot())
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Occupancy returns the number of occupied slots and the capacity.
func (pl *ParkingLot) Occupancy() (occupied, total int) {
	for _, s := range pl.slots {
		if s.IsOccupied {
			occupied++
		}
	}
	return occupied, len(pl.slots)
}

func (pl *ParkingLot) validate(size Size, entryPoint int) error {
	if !size.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if entryPoint < 0 || (len(pl.slots) > 0 && entryPoint >= pl.reach) {
		return fmt.Errorf("%w: %d", ErrInvalidEntryPoint, entryPoint)
	}
	return nil
}

func (pl *ParkingLot) nearest(size Size, entryPoint int) *Slot {
	var best *Slot
	for _, s := range pl.slots {
		if s.IsOccupied || !s.Fits(size) {
			continue
		}
		if best == nil || s.DistanceFrom(entryPoint) < best.DistanceFrom(entryPoint) {
			best = s
		}
	}
	return best
}

func (pl *ParkingLot) previousSlot(vehicle *Vehicle) *Slot {
	if vehicle.LastParkingSlotID == nil {
		return nil
	}
	id := *vehicle.LastParkingSlotID
	if id < 0 || id >= len(pl.slots) || pl.slots[id].IsOccupied {
		return nil
	}
	return pl.slots[id]
}

func (pl *ParkingLot) seat(vehicle *Vehicle, slot *Slot) (int, error) {
	if slot == nil {
		return 0, ErrNoSlotAvailable
	}
	slot.Park(vehicle)
	return slot.ID, nil
}

func (pl *ParkingLot) fee(vehicle *Vehicle, exitOverride *time.Time) float64 {
	var exit time.Time
	switch {
	case exitOverride != nil:
		exit = *exitOverride
	case !vehicle.IsParked() && vehicle.LastExitTime != nil:
		exit = *vehicle.LastExitTime
	default:
		exit = pl.clock.Now()
	}

	entry := exit
	if vehicle.EntryTime != nil {
		entry = *vehicle.EntryTime
	}
	return Fee(vehicle.Size, entry, exit)
}

func returning(vehicle *Vehicle, now time.Time) bool {
	return within(vehicle.LastExitTime, GracePeriod, now) && within(vehicle.EntryTime, FreeWindow, now)
}
