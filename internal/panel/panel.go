// Package panel defines the identity and observable state of the two panels.
package panel

import (
	"fmt"
	"strings"
	"time"

	"github.com/justyntemme/duopane/internal/fs"
)

// Side identifies one of the two panels.
type Side int

const (
	Left Side = iota
	Right
)

// Sides lists both panels in display order.
var Sides = [...]Side{Left, Right}

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Other returns the opposite panel.
func (s Side) Other() Side {
	if s == Left {
		return Right
	}
	return Left
}

// Valid reports whether s names a panel.
func (s Side) Valid() bool {
	return s == Left || s == Right
}

// ParseSide accepts "left", "right", "l" or "r" in any case.
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "l", "left":
		return Left, nil
	case "r", "right":
		return Right, nil
	}
	return 0, fmt.Errorf("unknown side %q", v)
}

// Status is the scan state of a single side.
type Status int

const (
	Idle Status = iota
	Scanning
	RecoveringAccess
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case RecoveringAccess:
		return "recovering-access"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State is a point-in-time copy of one panel.
type State struct {
	Side          Side
	Path          string
	Entries       []fs.Entry
	SortKey       fs.SortKey
	SortAscending bool
	Status        Status
	LastError     error
	LastScan      time.Time
	CanGoBack     bool
	CanGoForward  bool
}
