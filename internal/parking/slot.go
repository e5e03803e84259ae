package parking

// Slot is a parking space. Size and Distances are fixed at construction; the
// occupancy fields change through Park and Leave only.
type Slot struct {
	ID         int
	Size       Size
	Distances  []int
	IsOccupied bool
	// VehicleID is the current occupant, empty when the slot is free.
	VehicleID string
	// LastVehicleID is the vehicle that most recently left the slot.
	LastVehicleID string
}

func NewSlot(id int, size Size, distances []int) *Slot {
	d := make([]int, len(distances))
	copy(d, distances)

	return &Slot{
		ID:        id,
		Size:      size,
		Distances: d,
	}
}

// Fits reports whether a vehicle of the given size can use the slot.
func (s *Slot) Fits(size Size) bool {
	return s.Size >= size
}

// DistanceFrom returns the distance between the slot and an entry point.
func (s *Slot) DistanceFrom(entryPoint int) int {
	return s.Distances[entryPoint]
}

func (s *Slot) Park(vehicle *Vehicle) {
	s.IsOccupied = true
	s.VehicleID = vehicle.ID
	vehicle.slot = s
}

func (s *Slot) Leave(vehicle *Vehicle) {
	s.IsOccupied = false
	s.VehicleID = ""
	s.LastVehicleID = vehicle.ID
	vehicle.slot = nil
}

func (s *Slot) snapshot() Slot {
	c := *s
	c.Distances = append([]int(nil), s.Distances...)
	return c
}
