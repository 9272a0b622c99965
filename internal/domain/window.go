package domain

import "time"

// ErrorStatus is the radio status attached to an aggregation window.
type ErrorStatus uint8

const (
	StatusSuccess ErrorStatus = iota
	StatusRadioNotAvailable
	StatusAborted
	StatusUnknown
)

func (s ErrorStatus) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusRadioNotAvailable:
		return "RadioNotAvailable"
	case StatusAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// ParseErrorStatus is the inverse of ErrorStatus.String.
func ParseErrorStatus(s string) ErrorStatus {
	switch s {
	case "Success":
		return StatusSuccess
	case "RadioNotAvailable":
		return StatusRadioNotAvailable
	case "Aborted":
		return StatusAborted
	default:
		return StatusUnknown
	}
}

func (s ErrorStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *ErrorStatus) UnmarshalText(b []byte) error {
	*s = ParseErrorStatus(string(b))
	return nil
}

// Window is the set of advertisements collected between two flushes.
type Window struct {
	Events   []*AdvertisementEvent
	Status   ErrorStatus
	OpenedAt time.Time
	ClosedAt time.Time
	Dropped  uint64
}

func (w *Window) Len() int {
	if w == nil {
		return 0
	}
	return len(w.Events)
}
