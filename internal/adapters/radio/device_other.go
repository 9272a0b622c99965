//go:build !linux

package radio

import (
	"github.com/pkg/errors"

	"github.com/ghalamif/BeaconFlow/internal/ports"
)

func OpenDevice(id int) (Scanner, error) {
	return nil, errors.Wrapf(ports.ErrUnsupportedHardware, "hci%d: no BLE backend on this platform", id)
}
