package parking

// SizeStats counts the slots of one size class.
type SizeStats struct {
	Total     int `json:"total"`
	Occupied  int `json:"occupied"`
	Available int `json:"available"`
}

// Stats summarises the occupancy of a lot.
type Stats struct {
	Capacity           int                `json:"capacity"`
	Occupied           int                `json:"occupied"`
	Available          int                `json:"available"`
	OccupancyPercent   float64            `json:"occupancy_percent"`
	RegisteredVehicles int                `json:"registered_vehicles"`
	BySize             map[Size]SizeStats `json:"-"`
}

func (pl *ParkingLot) Stats() Stats {
	st := Stats{
		Capacity:           len(pl.slots),
		RegisteredVehicles: len(pl.vehicles),
		BySize:             make(map[Size]SizeStats, len(ExceedingRates)),
	}
	for _, s := range pl.slots {
		ss := st.BySize[s.Size]
		ss.Total++
		if s.IsOccupied {
			ss.Occupied++
			st.Occupied++
		} else {
			ss.Available++
		}
		st.BySize[s.Size] = ss
	}
	st.Available = st.Capacity - st.Occupied
	st.OccupancyPercent = PercentageOf(float64(st.Occupied), float64(st.Capacity))
	return st
}
