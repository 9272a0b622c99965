package beaconflow

import (
	"github.com/ghalamif/BeaconFlow/internal/app/scheduler"
	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

// AdvertisementEvent is a single received advertisement.
type AdvertisementEvent = domain.AdvertisementEvent

// AdvertisementType is the PDU type of an advertisement.
type AdvertisementType = domain.AdvertisementType

// ManufacturerSection is one manufacturer specific data field.
type ManufacturerSection = domain.ManufacturerSection

// FilterConfig selects advertisements by company ID and signal strength.
type FilterConfig = domain.FilterConfig

// RSSIRange holds the in range and out of range thresholds in dBm.
type RSSIRange = domain.RSSIRange

// ResultRecord is the published summary of one flushed window.
type ResultRecord = domain.ResultRecord

// ErrorStatus reports how a window's scan went.
type ErrorStatus = domain.ErrorStatus

// RadioSource delivers advertisements; implement it to plug in another stack.
type RadioSource = ports.RadioSource

// AdvHandler and ErrHandler are the callbacks a RadioSource delivers to.
type (
	AdvHandler = ports.AdvHandler
	ErrHandler = ports.ErrHandler
)

// Subscription stops a radio delivery.
type Subscription = ports.Subscription

// RadioError is a failure reported by a RadioSource.
type RadioError = ports.RadioError

// ResultChannel stores the latest record per task name.
type ResultChannel = ports.ResultChannel

// AccessProvider answers background execution requests.
type AccessProvider = ports.AccessProvider

// AccessStatus is an AccessProvider answer.
type AccessStatus = ports.AccessStatus

// Observability emits metrics and structured logs.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Handle identifies a registered watcher.
type Handle = scheduler.Handle

// State is a watcher's lifecycle state.
type State = scheduler.State

// Error statuses.
const (
	StatusSuccess           = domain.StatusSuccess
	StatusRadioNotAvailable = domain.StatusRadioNotAvailable
	StatusAborted           = domain.StatusAborted
	StatusUnknown           = domain.StatusUnknown
)

// Access answers.
const (
	AccessUnspecified = ports.AccessUnspecified
	AccessAllowed     = ports.AccessAllowed
	AccessDenied      = ports.AccessDenied
)

var (
	ErrUnsupportedHardware = ports.ErrUnsupportedHardware
	ErrPermissionDenied    = ports.ErrPermissionDenied
	ErrNotRegistered       = ports.ErrNotRegistered
	ErrInvalidFilter       = ports.ErrInvalidFilter
	ErrStoreClosed         = ports.ErrStoreClosed
)
