package ports

import "errors"

var (
	// ErrUnsupportedHardware is fatal to a registration; callers should not retry.
	ErrUnsupportedHardware = errors.New("beaconflow: hardware does not support background advertisement offload")

	// ErrPermissionDenied leaves a registration dormant until access is granted.
	ErrPermissionDenied = errors.New("beaconflow: background access denied")

	ErrNotRegistered = errors.New("beaconflow: watcher not registered")
	ErrInvalidFilter = errors.New("beaconflow: invalid filter config")
	ErrStoreClosed   = errors.New("beaconflow: result store closed")
)
