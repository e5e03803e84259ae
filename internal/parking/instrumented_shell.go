package parking

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type InstrumentedShell struct {
	instrumentedParkingLot *InstrumentedParkingLot
	scanner                *bufio.Scanner
	out                    io.Writer
	telemetry              *TelemetryProvider
}

// NewInstrumentedShell reads commands from in and writes answers to out. lot
// may be nil, in which case create_parking_lot must run first.
func NewInstrumentedShell(telemetry *TelemetryProvider, lot *InstrumentedParkingLot, in io.Reader, out io.Writer) *InstrumentedShell {
	return &InstrumentedShell{
		instrumentedParkingLot: lot,
		scanner:                bufio.NewScanner(in),
		out:                    out,
		telemetry:              telemetry,
	}
}

// Lot returns the lot the shell currently operates on.
func (s *InstrumentedShell) Lot() *InstrumentedParkingLot {
	return s.instrumentedParkingLot
}

func (s *InstrumentedShell) Run(ctx context.Context) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for ctx.Err() == nil {
		if !s.scanner.Scan() {
			break
		}

		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}

		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))

		s.processCommand(cmdCtx, input)
		cmdSpan.End()
	}

	span.AddEvent("shell_ended")
}

func (s *InstrumentedShell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *InstrumentedShell) println(msg string) {
	fmt.Fprintln(s.out, msg)
}

func (s *InstrumentedShell) processCommand(ctx context.Context, input string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.parse_command")
	defer span.End()

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	command := parts[0]
	span.SetAttributes(attribute.String("command.name", command))

	switch command {
	case "create_parking_lot":
		s.handleCreateParkingLot(ctx, parts)
	case "park":
		s.handlePark(ctx, parts)
	case "unpark", "leave":
		s.handleUnpark(ctx, parts)
	case "fee":
		s.handleFee(ctx, parts)
	case "nearest":
		s.handleNearest(ctx, parts)
	case "status":
		s.handleStatus(ctx)
	case "vehicle":
		s.handleVehicle(ctx, parts)
	default:
		span.AddEvent("unknown_command", trace.WithAttributes(
			attribute.String("unknown_command", command),
		))
		s.printf("Unknown command: %s\n", command)
	}
}

// handleCreateParkingLot parses
//
//	create_parking_lot <entry_points> <size>:<d0,d1,...> [<size>:<d0,d1,...> ...]
func (s *InstrumentedShell) handleCreateParkingLot(ctx context.Context, parts []string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.create_parking_lot")
	defer span.End()

	if len(parts) < 3 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: create_parking_lot <entry_points> <size>:<d0,d1,...> ...")
		return
	}

	entryPoints, err := strconv.Atoi(parts[1])
	if err != nil {
		span.RecordError(fmt.Errorf("invalid entry points: %s", parts[1]))
		s.println("Invalid entry points")
		return
	}

	distances := make([][]int, 0, len(parts)-2)
	sizes := make([]Size, 0, len(parts)-2)
	for _, arg := range parts[2:] {
		size, d, err := parseSlotArg(arg)
		if err != nil {
			span.RecordError(err)
			s.printf("Invalid slot %q: %s\n", arg, err.Error())
			return
		}
		sizes = append(sizes, size)
		distances = append(distances, d)
	}

	lot, err := NewParkingLot(entryPoints, distances, sizes)
	if err != nil {
		span.RecordError(err)
		s.printf("Error creating parking lot: %s\n", err.Error())
		return
	}

	instrumented, err := NewInstrumentedParkingLot(lot, s.telemetry)
	if err != nil {
		span.RecordError(err)
		s.printf("Error creating parking lot: %s\n", err.Error())
		return
	}

	if s.instrumentedParkingLot != nil {
		_ = s.instrumentedParkingLot.Close()
	}
	s.instrumentedParkingLot = instrumented

	span.SetAttributes(
		attribute.Int("parking_lot.capacity", lot.Capacity()),
		attribute.Int("parking_lot.entry_points", lot.EntryPoints()),
	)
	span.AddEvent("parking_lot_created")
	s.printf("Created a parking lot with %d slots and %d entry points\n", lot.Capacity(), lot.EntryPoints())
}

func (s *InstrumentedShell) handlePark(ctx context.Context, parts []string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.park_command")
	defer span.End()

	if !s.ready(span) {
		return
	}

	if len(parts) != 4 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: park <vehicle_id> <size> <entry_point>")
		return
	}

	size, err := ParseSize(parts[2])
	if err != nil {
		s.println("Invalid size")
		return
	}
	entryPoint, err := strconv.Atoi(parts[3])
	if err != nil {
		s.println("Invalid entry point")
		return
	}

	slotID, err := s.instrumentedParkingLot.Park(ctx, parts[1], size, entryPoint)
	if err != nil {
		span.AddEvent("parking_failed")
		s.printf("Sorry, %s\n", err.Error())
		return
	}

	span.AddEvent("parking_successful", trace.WithAttributes(
		attribute.Int("allocated_slot", slotID),
	))
	s.printf("Allocated slot number: %d\n", slotID)
}

func (s *InstrumentedShell) handleUnpark(ctx context.Context, parts []string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.unpark_command")
	defer span.End()

	if !s.ready(span) {
		return
	}

	if len(parts) != 2 && len(parts) != 3 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: unpark <vehicle_id> [exit_time RFC3339]")
		return
	}

	exit, ok := s.optionalTime(parts, 2)
	if !ok {
		return
	}

	receipt, err := s.instrumentedParkingLot.Unpark(ctx, parts[1], exit)
	if err != nil {
		span.AddEvent("unpark_failed")
		s.printf("Error: %s\n", err.Error())
		return
	}

	span.AddEvent("unpark_successful")
	s.printf("Slot number %d is free, fee: %.2f\n", receipt.SlotID, receipt.Fee)
}

func (s *InstrumentedShell) handleFee(ctx context.Context, parts []string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.fee_command")
	defer span.End()

	if !s.ready(span) {
		return
	}

	if len(parts) != 2 && len(parts) != 3 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: fee <vehicle_id> [exit_time RFC3339]")
		return
	}

	exit, ok := s.optionalTime(parts, 2)
	if !ok {
		return
	}

	fee, err := s.instrumentedParkingLot.CalculateFees(ctx, parts[1], exit)
	if err != nil {
		s.printf("Error: %s\n", err.Error())
		return
	}
	s.printf("%.2f\n", fee)
}

func (s *InstrumentedShell) handleNearest(ctx context.Context, parts []string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.nearest_command")
	defer span.End()

	if !s.ready(span) {
		return
	}

	if len(parts) != 3 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: nearest <size> <entry_point>")
		return
	}

	size, err := ParseSize(parts[1])
	if err != nil {
		s.println("Invalid size")
		return
	}
	entryPoint, err := strconv.Atoi(parts[2])
	if err != nil {
		s.println("Invalid entry point")
		return
	}

	slot, err := s.instrumentedParkingLot.FindNearestSlot(ctx, size, entryPoint)
	if err != nil {
		s.println("Not found")
		return
	}
	s.printf("%d\n", slot.ID)
}

func (s *InstrumentedShell) handleStatus(ctx context.Context) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.status_command")
	defer span.End()

	if !s.ready(span) {
		return
	}

	stats, slots := s.instrumentedParkingLot.GetStatus(ctx)
	if stats.Occupied == 0 {
		span.AddEvent("parking_lot_empty")
		s.println("Parking lot is empty")
		return
	}

	span.SetAttributes(attribute.Int("occupied_slots_count", stats.Occupied))
	span.AddEvent("status_retrieved")

	s.println("Slot No.\tSize\tVehicle")
	for _, slot := range slots {
		if slot.IsOccupied {
			s.printf("%d\t\t%s\t%s\n", slot.ID, slot.Size, slot.VehicleID)
		}
	}
	s.printf("Occupancy: %d/%d (%.1f%%)\n", stats.Occupied, stats.Capacity, stats.OccupancyPercent)
}

func (s *InstrumentedShell) handleVehicle(ctx context.Context, parts []string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.vehicle_command")
	defer span.End()

	if !s.ready(span) {
		return
	}

	if len(parts) != 2 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: vehicle <vehicle_id>")
		return
	}

	v, ok := s.instrumentedParkingLot.Vehicle(ctx, parts[1])
	if !ok {
		s.println("Not found")
		return
	}

	if slotID, parked := v.SlotID(); parked {
		s.printf("%s (%s) parked in slot %d\n", v.ID, v.Size, slotID)
		return
	}
	s.printf("%s (%s) not parked\n", v.ID, v.Size)
}

func (s *InstrumentedShell) ready(span trace.Span) bool {
	if s.instrumentedParkingLot == nil {
		span.AddEvent("parking_lot_not_created")
		s.println("Parking lot not created")
		return false
	}
	return true
}

func (s *InstrumentedShell) optionalTime(parts []string, idx int) (*time.Time, bool) {
	if len(parts) <= idx {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, parts[idx])
	if err != nil {
		s.println("Invalid exit time, expected RFC3339")
		return nil, false
	}
	return &t, true
}

// parseSlotArg parses "<size>:<d0,d1,...>", e.g. "medium:3,2,3".
func parseSlotArg(arg string) (Size, []int, error) {
	rawSize, rawDistances, ok := strings.Cut(arg, ":")
	if !ok {
		return 0, nil, fmt.Errorf("expected <size>:<distances>")
	}

	size, err := ParseSize(rawSize)
	if err != nil {
		return 0, nil, err
	}

	fields := strings.Split(rawDistances, ",")
	distances := make([]int, 0, len(fields))
	for _, f := range fields {
		d, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return 0, nil, fmt.Errorf("invalid distance %q", f)
		}
		distances = append(distances, d)
	}
	return size, distances, nil
}
