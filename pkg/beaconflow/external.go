package beaconflow

import (
	"time"

	"github.com/ghalamif/BeaconFlow/internal/adapters/radio"
)

// ExternalRadio lets callers feed advertisements captured by their own BLE
// stack (or replayed from disk) into the pipeline. Pass it with WithRadio.
type ExternalRadio struct {
	*radio.Sim
}

func NewExternalRadio() *ExternalRadio {
	return &ExternalRadio{Sim: radio.NewSim()}
}

// Publish delivers one advertisement to every registered watcher.
func (e *ExternalRadio) Publish(ev AdvertisementEvent) {
	e.Inject(&ev)
}

// PublishRaw parses a raw AD payload (as found in an HCI LE advertising
// report) and delivers it.
func (e *ExternalRadio) PublishRaw(at time.Time, typ AdvertisementType, rssi int16, addr string, payload []byte) error {
	return e.InjectPacket(at, typ, rssi, addr, payload)
}

// Fail reports a radio error to every watcher. Terminal errors halt them.
func (e *ExternalRadio) Fail(err RadioError) {
	e.InjectError(err)
}
