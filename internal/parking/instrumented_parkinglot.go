package parking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"parking-lot/internal/logging"
)

// Receipt describes a finished parking session.
type Receipt struct {
	ID        string    `json:"id"`
	VehicleID string    `json:"vehicle_id"`
	SlotID    int       `json:"slot_id"`
	Size      string    `json:"size"`
	EntryTime time.Time `json:"entry_time"`
	ExitTime  time.Time `json:"exit_time"`
	Fee       float64   `json:"fee"`
}

// InstrumentedParkingLot serializes access to a ParkingLot and traces and
// measures every operation.
type InstrumentedParkingLot struct {
	mu        sync.Mutex
	lot       *ParkingLot
	telemetry *TelemetryProvider

	parkingOperations   metric.Int64Counter
	unparkingOperations metric.Int64Counter
	graceReturns        metric.Int64Counter
	fees                metric.Float64Counter
	operationDuration   metric.Float64Histogram
	registration        metric.Registration
}

func NewInstrumentedParkingLot(lot *ParkingLot, telemetry *TelemetryProvider) (*InstrumentedParkingLot, error) {
	meter := telemetry.Meter()

	parkingOperations, err := meter.Int64Counter("parking_operations_total",
		metric.WithDescription("Total number of parking operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	unparkingOperations, err := meter.Int64Counter("unparking_operations_total",
		metric.WithDescription("Total number of unparking operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	graceReturns, err := meter.Int64Counter("grace_period_returns_total",
		metric.WithDescription("Vehicles that resumed a session inside the grace period"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	fees, err := meter.Float64Counter("parking_fees_total",
		metric.WithDescription("Sum of fees charged on exit"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of parking lot operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64ObservableGauge("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	totalSlotsGauge, err := meter.Int64ObservableGauge("parking_lot_total_slots",
		metric.WithDescription("Total number of parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	ipl := &InstrumentedParkingLot{
		lot:                 lot,
		telemetry:           telemetry,
		parkingOperations:   parkingOperations,
		unparkingOperations: unparkingOperations,
		graceReturns:        graceReturns,
		fees:                fees,
		operationDuration:   operationDuration,
	}

	ipl.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		occupied, total := ipl.Occupancy()
		o.ObserveInt64(occupancyGauge, int64(occupied))
		o.ObserveInt64(totalSlotsGauge, int64(total))
		return nil
	}, occupancyGauge, totalSlotsGauge)
	if err != nil {
		return nil, err
	}

	return ipl, nil
}

// Close stops reporting the occupancy gauges of this lot.
func (ipl *InstrumentedParkingLot) Close() error {
	if ipl.registration == nil {
		return nil
	}
	return ipl.registration.Unregister()
}

func (ipl *InstrumentedParkingLot) Park(ctx context.Context, vehicleID string, size Size, entryPoint int) (int, error) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.park",
		trace.WithAttributes(
			attribute.String("vehicle.id", vehicleID),
			attribute.String("vehicle.size", size.String()),
			attribute.Int("entry_point", entryPoint),
		))
	defer span.End()

	start := time.Now()

	ipl.mu.Lock()
	returning := ipl.lot.WithinGracePeriod(vehicleID)
	span.AddEvent("finding_available_slot", trace.WithAttributes(
		attribute.Bool("grace_period", returning),
	))
	slotID, err := ipl.lot.Park(vehicleID, size, entryPoint)
	ipl.mu.Unlock()

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "park"),
		attribute.String("vehicle_size", size.String()),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", failureStatus(err)))
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(attribute.Int("allocated_slot_id", slotID))
		span.AddEvent("slot_allocated", trace.WithAttributes(
			attribute.Int("slot_id", slotID),
		))
		log := logging.ForVehicle(ctx, vehicleID)
		log.Debug().
			Int("slotId", slotID).
			Bool("gracePeriod", returning).
			Msg("vehicle parked")
		if returning {
			ipl.graceReturns.Add(ctx, 1, metric.WithAttributes(attribute.String("vehicle_size", size.String())))
		}
	}

	ipl.parkingOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ipl.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return slotID, err
}

// Unpark frees the vehicle's slot and returns the receipt of the session.
func (ipl *InstrumentedParkingLot) Unpark(ctx context.Context, vehicleID string, exitOverride *time.Time) (Receipt, error) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.unpark",
		trace.WithAttributes(
			attribute.String("vehicle.id", vehicleID),
			attribute.Bool("exit_override", exitOverride != nil),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("releasing_slot")

	ipl.mu.Lock()
	fee, err := ipl.lot.Unpark(vehicleID, exitOverride)
	vehicle, _ := ipl.lot.Vehicle(vehicleID)
	ipl.mu.Unlock()

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "unpark"),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", failureStatus(err)))
		ipl.unparkingOperations.Add(ctx, 1, metric.WithAttributes(labels...))
		ipl.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))
		return Receipt{}, err
	}

	receipt := Receipt{
		ID:        uuid.NewString(),
		VehicleID: vehicleID,
		Size:      vehicle.Size.String(),
		ExitTime:  *vehicle.LastExitTime,
		Fee:       fee,
	}
	if vehicle.LastParkingSlotID != nil {
		receipt.SlotID = *vehicle.LastParkingSlotID
	}
	if vehicle.EntryTime != nil {
		receipt.EntryTime = *vehicle.EntryTime
	}
	if exitOverride != nil {
		receipt.ExitTime = *exitOverride
	}

	labels = append(labels,
		attribute.String("status", "success"),
		attribute.String("vehicle_size", receipt.Size),
	)
	span.SetAttributes(
		attribute.Int("slot_id", receipt.SlotID),
		attribute.Float64("fee", fee),
		attribute.String("receipt.id", receipt.ID),
	)
	span.AddEvent("slot_released")
	log := logging.ForVehicle(ctx, vehicleID)
	log.Debug().
		Int("slotId", receipt.SlotID).
		Float64("fee", fee).
		Msg("vehicle left")

	ipl.fees.Add(ctx, fee, metric.WithAttributes(attribute.String("vehicle_size", receipt.Size)))
	ipl.unparkingOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ipl.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return receipt, nil
}

func (ipl *InstrumentedParkingLot) CalculateFees(ctx context.Context, vehicleID string, exitOverride *time.Time) (float64, error) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.fees",
		trace.WithAttributes(attribute.String("vehicle.id", vehicleID)))
	defer span.End()

	start := time.Now()

	ipl.mu.Lock()
	fee, err := ipl.lot.CalculateFees(vehicleID, exitOverride)
	ipl.mu.Unlock()

	labels := []attribute.KeyValue{
		attribute.String("operation", "fees"),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", failureStatus(err)))
	} else {
		span.SetAttributes(attribute.Float64("fee", fee))
		labels = append(labels, attribute.String("status", "success"))
	}

	ipl.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return fee, err
}

func (ipl *InstrumentedParkingLot) FindNearestSlot(ctx context.Context, size Size, entryPoint int) (Slot, error) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.nearest",
		trace.WithAttributes(
			attribute.String("vehicle.size", size.String()),
			attribute.Int("entry_point", entryPoint),
		))
	defer span.End()

	start := time.Now()

	ipl.mu.Lock()
	slot, err := ipl.lot.FindNearestSlot(size, entryPoint)
	ipl.mu.Unlock()

	labels := []attribute.KeyValue{
		attribute.String("operation", "nearest"),
	}
	if err != nil {
		span.AddEvent("no_slot_found")
		labels = append(labels, attribute.String("status", failureStatus(err)))
	} else {
		span.SetAttributes(attribute.Int("found_slot_id", slot.ID))
		labels = append(labels, attribute.String("status", "found"))
	}

	ipl.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return slot, err
}

// GetStatus returns the lot summary and a copy of every slot.
func (ipl *InstrumentedParkingLot) GetStatus(ctx context.Context) (Stats, []Slot) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.status")
	defer span.End()

	start := time.Now()

	ipl.mu.Lock()
	stats := ipl.lot.Stats()
	slots := ipl.lot.Slots()
	ipl.mu.Unlock()

	span.SetAttributes(
		attribute.Int("occupied_slots_count", stats.Occupied),
		attribute.Int("total_capacity", stats.Capacity),
	)

	ipl.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", "status"),
		attribute.String("status", "success"),
	))

	return stats, slots
}

func (ipl *InstrumentedParkingLot) Vehicle(ctx context.Context, vehicleID string) (Vehicle, bool) {
	_, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.vehicle",
		trace.WithAttributes(attribute.String("vehicle.id", vehicleID)))
	defer span.End()

	ipl.mu.Lock()
	defer ipl.mu.Unlock()

	v, ok := ipl.lot.Vehicle(vehicleID)
	if !ok {
		span.AddEvent("vehicle_not_found")
	}
	return v, ok
}

func (ipl *InstrumentedParkingLot) Stats() Stats {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()
	return ipl.lot.Stats()
}

func (ipl *InstrumentedParkingLot) Occupancy() (occupied, total int) {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()
	return ipl.lot.Occupancy()
}

func (ipl *InstrumentedParkingLot) EntryPoints() int {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()
	return ipl.lot.EntryPoints()
}

func failureStatus(err error) string {
	switch {
	case errors.Is(err, ErrNoSlotAvailable):
		return "full"
	case errors.Is(err, ErrVehicleNotParked), errors.Is(err, ErrVehicleNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyParked):
		return "conflict"
	default:
		return "invalid"
	}
}
