package parking

import "errors"

var (
	ErrNoSlotAvailable   = errors.New("no slot available")
	ErrVehicleNotParked  = errors.New("vehicle is not parked")
	ErrVehicleNotFound   = errors.New("vehicle not found")
	ErrAlreadyParked     = errors.New("vehicle is already parked")
	ErrInvalidSize       = errors.New("invalid size")
	ErrInvalidEntryPoint = errors.New("invalid entry point")
	ErrInvalidLayout     = errors.New("invalid parking lot layout")
)
