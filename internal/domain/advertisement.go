package domain

import (
	"fmt"
	"time"
)

// AdvertisementType is the PDU type an advertisement was received with.
type AdvertisementType uint8

const (
	ConnectableUndirected AdvertisementType = iota
	ConnectableDirected
	ScannableUndirected
	NonConnectableUndirected
	ScanResponse
)

func (t AdvertisementType) String() string {
	switch t {
	case ConnectableUndirected:
		return "ConnectableUndirected"
	case ConnectableDirected:
		return "ConnectableDirected"
	case ScannableUndirected:
		return "ScannableUndirected"
	case NonConnectableUndirected:
		return "NonConnectableUndirected"
	case ScanResponse:
		return "ScanResponse"
	default:
		return fmt.Sprintf("AdvertisementType(%d)", uint8(t))
	}
}

// RSSI values reported by controllers; 127 means the value is not available.
const (
	RSSIUnavailable int16 = 127
	MinRSSI         int16 = -127
	MaxRSSI         int16 = 20
)

// ManufacturerSection is one manufacturer specific data field of an advertisement.
type ManufacturerSection struct {
	CompanyID uint16 `json:"company_id"`
	Payload   []byte `json:"payload"`
}

// AdvertisementEvent is a single received advertisement. It is never mutated
// once handed to the pipeline.
type AdvertisementEvent struct {
	Timestamp        time.Time             `json:"ts"`
	RawRSSI          int16                 `json:"rssi"`
	Type             AdvertisementType     `json:"type"`
	LocalName        string                `json:"local_name,omitempty"`
	Address          string                `json:"address,omitempty"`
	ManufacturerData []ManufacturerSection `json:"manufacturer_data,omitempty"`
}

// RSSI returns the signal strength and whether it is a usable sample.
func (e *AdvertisementEvent) RSSI() (int16, bool) {
	if e == nil {
		return 0, false
	}
	if e.RawRSSI == RSSIUnavailable || e.RawRSSI < MinRSSI || e.RawRSSI > MaxRSSI {
		return 0, false
	}
	return e.RawRSSI, true
}
