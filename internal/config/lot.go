package config

import (
	"fmt"

	"parking-lot/internal/parking"
)

// SlotConfig describes one slot: its size class ("small", "medium", "large"
// or 0..2) and its distance to each entry point.
type SlotConfig struct {
	Size      string `json:"size"`
	Distances []int  `json:"distances"`
}

type LotConfig struct {
	EntryPoints int          `json:"entry_points"`
	Slots       []SlotConfig `json:"slots"`
}

// DefaultLot is a four slot lot with three entry points.
func DefaultLot() LotConfig {
	return LotConfig{
		EntryPoints: 3,
		Slots: []SlotConfig{
			{Size: "small", Distances: []int{1, 4, 5}},
			{Size: "medium", Distances: []int{3, 2, 3}},
			{Size: "medium", Distances: []int{2, 3, 2}},
			{Size: "large", Distances: []int{5, 5, 1}},
		},
	}
}

func (c *LotConfig) SetDefaults() {
	if len(c.Slots) == 0 {
		*c = DefaultLot()
	}
	if c.EntryPoints == 0 {
		c.EntryPoints = parking.MinEntryPoints
	}
}

func (c LotConfig) Validate() error {
	if c.EntryPoints < 0 {
		return fmt.Errorf("entry_points must not be negative")
	}
	_, _, err := c.Layout()
	return err
}

// Layout converts the slots to the parallel distance and size slices taken
// by parking.NewParkingLot.
func (c LotConfig) Layout() ([][]int, []parking.Size, error) {
	distances := make([][]int, len(c.Slots))
	sizes := make([]parking.Size, len(c.Slots))
	for i, s := range c.Slots {
		size, err := parking.ParseSize(s.Size)
		if err != nil {
			return nil, nil, fmt.Errorf("slot %d: %w", i, err)
		}
		if len(s.Distances) == 0 {
			return nil, nil, fmt.Errorf("slot %d: distances are required", i)
		}
		sizes[i] = size
		distances[i] = s.Distances
	}
	return distances, sizes, nil
}

// Build creates the parking lot described by c.
func (c LotConfig) Build(opts ...parking.Option) (*parking.ParkingLot, error) {
	distances, sizes, err := c.Layout()
	if err != nil {
		return nil, err
	}
	return parking.NewParkingLot(c.EntryPoints, distances, sizes, opts...)
}
