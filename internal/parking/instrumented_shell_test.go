package parking

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runShell(t *testing.T, lot *InstrumentedParkingLot, input string) (string, *InstrumentedShell) {
	t.Helper()

	var out bytes.Buffer
	shell := NewInstrumentedShell(NewNoopTelemetryProvider(), lot, strings.NewReader(input), &out)
	shell.Run(context.Background())
	return out.String(), shell
}

func TestShellRequiresLot(t *testing.T) {
	out, _ := runShell(t, nil, "park A small 0\nstatus\n")
	assert.Equal(t, "Parking lot not created\nParking lot not created\n", out)
}

func TestShellCreateParkingLot(t *testing.T) {
	out, shell := runShell(t, nil, strings.Join([]string{
		"create_parking_lot 3 small:1,4,5 medium:3,2,3 m:2,3,2 large:5,5,1",
		"park Car1 small 0",
		"park Car2 large 1",
		"status",
	}, "\n"))

	assert.Equal(t, strings.Join([]string{
		"Created a parking lot with 4 slots and 3 entry points",
		"Allocated slot number: 0",
		"Allocated slot number: 3",
		"Slot No.\tSize\tVehicle",
		"0\t\tsmall\tCar1",
		"3\t\tlarge\tCar2",
		"Occupancy: 2/4 (50.0%)",
		"",
	}, "\n"), out)

	require.NotNil(t, shell.Lot())
	assert.Equal(t, 4, shell.Lot().Stats().Capacity)
}

func TestShellCreateParkingLotErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"create_parking_lot 3", "Usage: create_parking_lot <entry_points> <size>:<d0,d1,...> ...\n"},
		{"create_parking_lot x small:1", "Invalid entry points\n"},
		{"create_parking_lot 3 small", "Invalid slot \"small\": expected <size>:<distances>\n"},
		{"create_parking_lot 3 huge:1,2", "Invalid slot \"huge:1,2\": invalid size: \"huge\"\n"},
		{"create_parking_lot 3 small:1,x", "Invalid slot \"small:1,x\": invalid distance \"x\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out, shell := runShell(t, nil, tt.input)
			assert.Equal(t, tt.want, out)
			assert.Nil(t, shell.Lot())
		})
	}
}

func TestShellCreateParkingLotRaisesEntryPoints(t *testing.T) {
	for _, requested := range []string{"0", "-2", "1"} {
		t.Run(requested, func(t *testing.T) {
			out, shell := runShell(t, nil, "create_parking_lot "+requested+" small:1,2,3")
			assert.Equal(t, "Created a parking lot with 1 slots and 3 entry points\n", out)
			require.NotNil(t, shell.Lot())
			assert.Equal(t, MinEntryPoints, shell.Lot().EntryPoints())
		})
	}
}

func TestShellCommands(t *testing.T) {
	ipl, clock := newInstrumentedDemoLot(t, NewNoopTelemetryProvider())
	exit := clock.Now().Add(5 * time.Hour).Format(time.RFC3339)

	out, _ := runShell(t, ipl, strings.Join([]string{
		"status",
		"park ABC small 0",
		"park ABC small 0",
		"nearest medium 0",
		"nearest large 9",
		"fee ABC " + exit,
		"vehicle ABC",
		"unpark ABC " + exit,
		"vehicle ABC",
		"vehicle XYZ",
		"leave ABC",
		"fly away",
	}, "\n"))

	assert.Equal(t, strings.Join([]string{
		"Parking lot is empty",
		"Allocated slot number: 0",
		"Sorry, vehicle is already parked: ABC",
		"2",
		"Not found",
		"80.00",
		"ABC (small) parked in slot 0",
		"Slot number 0 is free, fee: 80.00",
		"ABC (small) not parked",
		"Not found",
		"Error: vehicle is not parked: ABC",
		"Unknown command: fly",
		"",
	}, "\n"), out)
}

func TestShellArgumentErrors(t *testing.T) {
	ipl, _ := newInstrumentedDemoLot(t, NewNoopTelemetryProvider())

	out, _ := runShell(t, ipl, strings.Join([]string{
		"park ABC small",
		"park ABC bus 0",
		"park ABC small one",
		"unpark",
		"unpark ABC yesterday",
		"fee",
		"nearest small",
		"vehicle",
	}, "\n"))

	assert.Equal(t, strings.Join([]string{
		"Usage: park <vehicle_id> <size> <entry_point>",
		"Invalid size",
		"Invalid entry point",
		"Usage: unpark <vehicle_id> [exit_time RFC3339]",
		"Invalid exit time, expected RFC3339",
		"Usage: fee <vehicle_id> [exit_time RFC3339]",
		"Usage: nearest <size> <entry_point>",
		"Usage: vehicle <vehicle_id>",
		"",
	}, "\n"), out)
}

func TestShellStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	shell := NewInstrumentedShell(NewNoopTelemetryProvider(), nil, strings.NewReader("status\n"), &out)
	shell.Run(ctx)
	assert.Empty(t, out.String())
}

func TestParseSlotArg(t *testing.T) {
	size, distances, err := parseSlotArg("medium:3, 2,3")
	require.NoError(t, err)
	assert.Equal(t, Medium, size)
	assert.Equal(t, []int{3, 2, 3}, distances)
}
