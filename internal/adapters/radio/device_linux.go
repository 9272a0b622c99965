//go:build linux

package radio

import (
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/pkg/errors"

	"github.com/ghalamif/BeaconFlow/internal/ports"
)

// OpenDevice opens the HCI controller hci<id>.
func OpenDevice(id int) (Scanner, error) {
	dev, err := linux.NewDevice(ble.OptDeviceID(id))
	if err != nil {
		return nil, errors.Wrapf(ports.ErrUnsupportedHardware, "open hci%d: %v", id, err)
	}
	return dev, nil
}
