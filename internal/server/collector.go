package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"parking-lot/internal/parking"
)

// LotCollector exports the occupancy of whatever lot the handler currently
// serves. Nothing is emitted before a lot exists.
type LotCollector struct {
	lot func() *parking.InstrumentedParkingLot

	slots    *prometheus.Desc
	vehicles *prometheus.Desc
}

func NewLotCollector(lot func() *parking.InstrumentedParkingLot) *LotCollector {
	return &LotCollector{
		lot: lot,
		slots: prometheus.NewDesc(
			"parking_lot_slots",
			"Number of parking slots by size and state.",
			[]string{"size", "state"}, nil,
		),
		vehicles: prometheus.NewDesc(
			"parking_lot_registered_vehicles",
			"Number of vehicles the lot has seen.",
			nil, nil,
		),
	}
}

func (c *LotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.slots
	ch <- c.vehicles
}

func (c *LotCollector) Collect(ch chan<- prometheus.Metric) {
	lot := c.lot()
	if lot == nil {
		return
	}

	stats := lot.Stats()
	for _, size := range []parking.Size{parking.Small, parking.Medium, parking.Large} {
		ss := stats.BySize[size]
		ch <- prometheus.MustNewConstMetric(c.slots, prometheus.GaugeValue, float64(ss.Occupied), size.String(), "occupied")
		ch <- prometheus.MustNewConstMetric(c.slots, prometheus.GaugeValue, float64(ss.Available), size.String(), "available")
	}
	ch <- prometheus.MustNewConstMetric(c.vehicles, prometheus.GaugeValue, float64(stats.RegisteredVehicles))
}
