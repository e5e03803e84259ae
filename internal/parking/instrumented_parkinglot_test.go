package parking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type recordingTelemetry struct {
	provider *TelemetryProvider
	reader   *sdkmetric.ManualReader
	spans    *tracetest.SpanRecorder
}

func newRecordingTelemetry() *recordingTelemetry {
	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	spans := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	return &recordingTelemetry{
		provider: &TelemetryProvider{
			tracerProvider: tracerProvider,
			meterProvider:  meterProvider,
			tracer:         tracerProvider.Tracer("test"),
			meter:          meterProvider.Meter("test"),
		},
		reader: reader,
		spans:  spans,
	}
}

func (r *recordingTelemetry) collect(t *testing.T) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, r.reader.Collect(context.Background(), &rm))

	res := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			res[m.Name] = m
		}
	}
	return res
}

func (r *recordingTelemetry) spanNames() []string {
	var names []string
	for _, s := range r.spans.Ended() {
		names = append(names, s.Name())
	}
	return names
}

func sumInt(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func gaugeInt(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	gauge, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok, "%s is not an int64 gauge", m.Name)
	require.Len(t, gauge.DataPoints, 1)
	return gauge.DataPoints[0].Value
}

func newInstrumentedDemoLot(t *testing.T, telemetry *TelemetryProvider) (*InstrumentedParkingLot, *fakeClock) {
	t.Helper()
	lot, clock := newDemoLot(t)
	ipl, err := NewInstrumentedParkingLot(lot, telemetry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ipl.Close() })
	return ipl, clock
}

func TestInstrumentedParkingLotIntegration(t *testing.T) {
	ctx := context.Background()
	ipl, clock := newInstrumentedDemoLot(t, NewNoopTelemetryProvider())

	slotID, err := ipl.Park(ctx, "KA01HH1234", Small, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, slotID)

	stats, slots := ipl.GetStatus(ctx)
	assert.Equal(t, 1, stats.Occupied)
	require.Len(t, slots, 4)
	assert.Equal(t, "KA01HH1234", slots[0].VehicleID)

	nearest, err := ipl.FindNearestSlot(ctx, Small, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, nearest.ID)

	clock.Advance(5 * time.Hour)
	fee, err := ipl.CalculateFees(ctx, "KA01HH1234", nil)
	require.NoError(t, err)
	assert.Equal(t, 80.0, fee)

	receipt, err := ipl.Unpark(ctx, "KA01HH1234", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.ID)
	assert.Equal(t, "KA01HH1234", receipt.VehicleID)
	assert.Equal(t, 0, receipt.SlotID)
	assert.Equal(t, "small", receipt.Size)
	assert.Equal(t, 80.0, receipt.Fee)
	assert.Equal(t, 5*time.Hour, receipt.ExitTime.Sub(receipt.EntryTime))

	v, ok := ipl.Vehicle(ctx, "KA01HH1234")
	require.True(t, ok)
	assert.False(t, v.IsParked())

	_, ok = ipl.Vehicle(ctx, "missing")
	assert.False(t, ok)

	occupied, total := ipl.Occupancy()
	assert.Zero(t, occupied)
	assert.Equal(t, 4, total)
	assert.Equal(t, 3, ipl.EntryPoints())
}

func TestInstrumentedUnparkReceiptUsesOverride(t *testing.T) {
	ctx := context.Background()
	ipl, clock := newInstrumentedDemoLot(t, NewNoopTelemetryProvider())

	_, err := ipl.Park(ctx, "LRG", Large, 2)
	require.NoError(t, err)

	exit := clock.Now().Add(24 * time.Hour)
	receipt, err := ipl.Unpark(ctx, "LRG", &exit)
	require.NoError(t, err)
	assert.Equal(t, exit, receipt.ExitTime)
	assert.Equal(t, 5000.0, receipt.Fee)

	first := receipt.ID
	_, err = ipl.Park(ctx, "LRG", Large, 2)
	require.NoError(t, err)
	receipt, err = ipl.Unpark(ctx, "LRG", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, receipt.ID)
}

func TestInstrumentedErrors(t *testing.T) {
	ctx := context.Background()
	ipl, _ := newInstrumentedDemoLot(t, NewNoopTelemetryProvider())

	_, err := ipl.Unpark(ctx, "ghost", nil)
	assert.ErrorIs(t, err, ErrVehicleNotParked)

	_, err = ipl.CalculateFees(ctx, "ghost", nil)
	assert.ErrorIs(t, err, ErrVehicleNotFound)

	_, err = ipl.Park(ctx, "car", Small, 9)
	assert.ErrorIs(t, err, ErrInvalidEntryPoint)
}

func TestInstrumentedMetrics(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingTelemetry()
	ipl, clock := newInstrumentedDemoLot(t, rec.provider)

	_, err := ipl.Park(ctx, "A", Small, 0)
	require.NoError(t, err)
	_, err = ipl.Park(ctx, "B", Large, 0)
	require.NoError(t, err)
	_, err = ipl.Park(ctx, "C", Large, 0)
	require.ErrorIs(t, err, ErrNoSlotAvailable)

	// A leaves after 2h (40) and comes back inside the grace period.
	clock.Advance(2 * time.Hour)
	_, err = ipl.Unpark(ctx, "A", nil)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	_, err = ipl.Park(ctx, "A", Small, 0)
	require.NoError(t, err)

	// B leaves after 2h10m: the started hour at the large rate plus 40.
	_, err = ipl.Unpark(ctx, "B", nil)
	require.NoError(t, err)

	metrics := rec.collect(t)

	assert.Equal(t, int64(4), sumInt(t, metrics["parking_operations_total"]))
	assert.Equal(t, int64(2), sumInt(t, metrics["unparking_operations_total"]))
	assert.Equal(t, int64(1), sumInt(t, metrics["grace_period_returns_total"]))

	fees, ok := metrics["parking_fees_total"].Data.(metricdata.Sum[float64])
	require.True(t, ok)
	var total float64
	for _, dp := range fees.DataPoints {
		total += dp.Value
	}
	assert.Len(t, fees.DataPoints, 2, "one series per vehicle size")
	assert.Equal(t, 40.0+140.0, total)

	assert.Equal(t, int64(1), gaugeInt(t, metrics["parking_lot_occupancy"]))
	assert.Equal(t, int64(4), gaugeInt(t, metrics["parking_lot_total_slots"]))

	assert.Contains(t, metrics, "operation_duration_seconds")
}

func TestInstrumentedSpans(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingTelemetry()
	ipl, _ := newInstrumentedDemoLot(t, rec.provider)

	_, err := ipl.Park(ctx, "A", Small, 0)
	require.NoError(t, err)
	_, err = ipl.Unpark(ctx, "A", nil)
	require.NoError(t, err)
	_, err = ipl.Unpark(ctx, "A", nil)
	require.Error(t, err)

	assert.Equal(t, []string{"parking_lot.park", "parking_lot.unpark", "parking_lot.unpark"}, rec.spanNames())

	failed := rec.spans.Ended()[2]
	assert.Equal(t, "Error", failed.Status().Code.String())
}

func TestInstrumentedCloseStopsGauges(t *testing.T) {
	rec := newRecordingTelemetry()
	lot, _ := newDemoLot(t)
	ipl, err := NewInstrumentedParkingLot(lot, rec.provider)
	require.NoError(t, err)

	require.NoError(t, ipl.Close())

	metrics := rec.collect(t)
	if m, ok := metrics["parking_lot_occupancy"]; ok {
		gauge := m.Data.(metricdata.Gauge[int64])
		assert.Empty(t, gauge.DataPoints)
	}
}

func TestInstrumentedConcurrentPark(t *testing.T) {
	ctx := context.Background()
	ipl, _ := newInstrumentedDemoLot(t, NewNoopTelemetryProvider())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		parked  int
		full    int
		ids     = []string{"A", "B", "C", "D", "E", "F", "G", "H"}
		seenIDs = make(map[int]bool)
	)
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slotID, err := ipl.Park(ctx, id, Small, 0)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, ErrNoSlotAvailable)
				full++
				return
			}
			assert.False(t, seenIDs[slotID], "slot %d handed out twice", slotID)
			seenIDs[slotID] = true
			parked++
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, parked)
	assert.Equal(t, 4, full)
}

func TestNoopTelemetryProviderShutdown(t *testing.T) {
	tp := NewNoopTelemetryProvider()
	assert.NotNil(t, tp.Tracer())
	assert.NotNil(t, tp.Meter())
	assert.NoError(t, tp.Shutdown(context.Background()))
}
