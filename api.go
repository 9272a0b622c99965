package beaconflow

import (
	"context"
	"time"

	base "github.com/ghalamif/BeaconFlow/pkg/beaconflow"
)

// Re-exported errors for convenience.
var (
	ErrUnsupportedHardware = base.ErrUnsupportedHardware
	ErrPermissionDenied    = base.ErrPermissionDenied
	ErrNotRegistered       = base.ErrNotRegistered
	ErrInvalidFilter       = base.ErrInvalidFilter
	ErrStoreClosed         = base.ErrStoreClosed
	ErrConsumerClosed      = base.ErrConsumerClosed
)

// Type aliases so consumers can import github.com/ghalamif/BeaconFlow directly.
type (
	Config              = base.Config
	Policy              = base.Policy
	WatcherConfig       = base.WatcherConfig
	StoreConfig         = base.StoreConfig
	RedisConfig         = base.RedisConfig
	RadioConfig         = base.RadioConfig
	MetricsConfig       = base.MetricsConfig
	LogConfig           = base.LogConfig
	Flow                = base.Flow
	FlowOption          = base.FlowOption
	StreamInOption      = base.StreamInOption
	StreamOutOption     = base.StreamOutOption
	Runtime             = base.Runtime
	RuntimeOption       = base.RuntimeOption
	ExternalRadio       = base.ExternalRadio
	AdvertisementEvent  = base.AdvertisementEvent
	AdvertisementType   = base.AdvertisementType
	ManufacturerSection = base.ManufacturerSection
	FilterConfig        = base.FilterConfig
	RSSIRange           = base.RSSIRange
	ResultRecord        = base.ResultRecord
	ErrorStatus         = base.ErrorStatus
	RadioSource         = base.RadioSource
	AdvHandler          = base.AdvHandler
	ErrHandler          = base.ErrHandler
	Subscription        = base.Subscription
	RadioError          = base.RadioError
	ResultChannel       = base.ResultChannel
	AccessProvider      = base.AccessProvider
	AccessStatus        = base.AccessStatus
	Observability       = base.Observability
	Field               = base.Field
	Handle              = base.Handle
	State               = base.State
)

// Driver names, statuses and access answers.
const (
	StoreMemory   = base.StoreMemory
	StoreFile     = base.StoreFile
	StorePostgres = base.StorePostgres
	StoreRedis    = base.StoreRedis
	RadioBLE      = base.RadioBLE
	RadioSim      = base.RadioSim

	StatusSuccess           = base.StatusSuccess
	StatusRadioNotAvailable = base.StatusRadioNotAvailable
	StatusAborted           = base.StatusAborted
	StatusUnknown           = base.StatusUnknown

	AccessUnspecified = base.AccessUnspecified
	AccessAllowed     = base.AccessAllowed
	AccessDenied      = base.AccessDenied
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInRadio(r RadioSource) StreamInOption {
	return base.StreamInRadio(r)
}

func StreamInAccess(a AccessProvider) StreamInOption {
	return base.StreamInAccess(a)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutStore(ch ResultChannel) StreamOutOption {
	return base.StreamOutStore(ch)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(fn func(*ResultRecord)) StreamOutOption {
	return base.StreamOutCallback(fn)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithRadio(r RadioSource) RuntimeOption {
	return base.WithRadio(r)
}

func WithResultChannel(ch ResultChannel) RuntimeOption {
	return base.WithResultChannel(ch)
}

func WithAccessProvider(a AccessProvider) RuntimeOption {
	return base.WithAccessProvider(a)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithResultCallback(fn func(*ResultRecord)) RuntimeOption {
	return base.WithResultCallback(fn)
}

// Stores and consumers.
func OpenResultChannel(sc StoreConfig, readOnly bool) (ResultChannel, func() error, error) {
	return base.OpenResultChannel(sc, readOnly)
}

func NewChannelConsumer(buffer int) (func(*ResultRecord), <-chan ResultRecord, func()) {
	return base.NewChannelConsumer(buffer)
}

func ConsumeAndClear(ctx context.Context, ch ResultChannel, name string) (*ResultRecord, bool, error) {
	return base.ConsumeAndClear(ctx, ch, name)
}

func PollResults(ctx context.Context, ch ResultChannel, interval time.Duration, fn func(*ResultRecord)) error {
	return base.PollResults(ctx, ch, interval, fn)
}

// External radio.
func NewExternalRadio() *ExternalRadio {
	return base.NewExternalRadio()
}
