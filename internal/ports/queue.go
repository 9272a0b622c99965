package ports

import "github.com/ghalamif/BeaconFlow/internal/domain"

// WindowBuffer accumulates advertisements between two flushes.
type WindowBuffer interface {
	// Append adds ev to the open window. It reports whether the event was
	// kept and whether the window has reached its configured size.
	Append(ev *domain.AdvertisementEvent) (kept, full bool)
	// Drain returns the current window. With reopen a new empty window is
	// opened, otherwise the buffer stays closed and Append is a no-op.
	Drain(reopen bool) *domain.Window
	SetError(status domain.ErrorStatus)
	Close()
	Len() int
}
