package parking

import (
	"fmt"
	"strconv"
	"strings"
)

// Size is the size class of a slot or a vehicle. Classes are ordered so that a
// vehicle fits any slot whose size is greater than or equal to its own.
type Size int

const (
	Small Size = iota
	Medium
	Large
)

func (s Size) String() string {
	switch s {
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// Valid reports whether s is one of Small, Medium or Large.
func (s Size) Valid() bool {
	return s >= Small && s <= Large
}

// ParseSize accepts either the class name ("small", "m", ...) or its numeric
// encoding ("0", "1", "2").
func ParseSize(raw string) (Size, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "small", "s":
		return Small, nil
	case "medium", "m":
		return Medium, nil
	case "large", "l":
		return Large, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || !Size(n).Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, raw)
	}
	return Size(n), nil
}
