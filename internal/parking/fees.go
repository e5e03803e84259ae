package parking

import (
	"math"
	"time"
)

const (
	// BaseRate is the flat charge of every stay shorter than a day.
	BaseRate = 40
	// DailyRate is charged per 24 hour block and replaces BaseRate.
	DailyRate = 5000
	// FreeHours is the allowance covered by BaseRate.
	FreeHours = 3

	// GracePeriod is how long after an exit a vehicle may come back and keep
	// its original entry time.
	GracePeriod = time.Hour
	// FreeWindow bounds a returning vehicle's session, measured from entry.
	FreeWindow = FreeHours * time.Hour
)

// ExceedingRates is the hourly charge per size class beyond the free hours,
// also used as the surcharge for leftover minutes.
var ExceedingRates = [...]float64{
	Small:  20,
	Medium: 60,
	Large:  100,
}

// Fee computes the amount due for a stay between entry and exit.
//
// The duration is floored to whole minutes and split into hours and leftover
// minutes. Stays of a day or more are billed DailyRate per 24h (fractional
// days included) without BaseRate. Shorter stays pay BaseRate plus the size
// rate for each hour past FreeHours. Any leftover minute adds one more hour
// at the size rate.
func Fee(size Size, entry, exit time.Time) float64 {
	minutes := floorDiv(int64(exit.Sub(entry)), int64(time.Minute))
	hours := floorDiv(minutes, 60)
	leftover := minutes % 60
	rate := ExceedingRates[size]

	var total float64
	switch {
	case hours >= 24:
		days := float64(hours) / 24
		// float64() keeps days*24 rounded before the subtraction (no FMA).
		remaining := float64(days*24) - float64(hours)
		total = DailyRate*days + math.Ceil(remaining)*rate
	case hours > FreeHours:
		total = math.Ceil(float64(hours-FreeHours)) * rate
	}

	if leftover > 0 {
		total += rate
	}

	if hours >= 24 {
		return total
	}
	return total + BaseRate
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// PercentageOf returns n as a percentage of base.
func PercentageOf(n, base float64) float64 {
	if base == 0 {
		return 0
	}
	return n / base * 100
}

