package scheduler

import (
	"fmt"

	"github.com/google/uuid"
)

// State is the lifecycle position of a registration.
type State int32

const (
	StateUnregistered State = iota
	StateRegistering
	// StateDormant means background access was denied; nothing is scanned.
	StateDormant
	StateActive
	StateFlushing
	// StateHalted follows a terminal radio error. Only a new Register
	// brings the watcher back.
	StateHalted
	StateUnregistering
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistering:
		return "registering"
	case StateDormant:
		return "dormant"
	case StateActive:
		return "active"
	case StateFlushing:
		return "flushing"
	case StateHalted:
		return "halted"
	case StateUnregistering:
		return "unregistering"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Handle identifies one registration. A handle from a replaced registration
// no longer reaches the watcher registered under the same name.
type Handle struct {
	Name  string
	Token uuid.UUID
}
