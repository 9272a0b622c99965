package radio

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/ghalamif/BeaconFlow/internal/domain"
)

// AD structure types used by the parser.
const (
	adShortName        = 0x08
	adCompleteName     = 0x09
	adManufacturerData = 0xFF
)

// Packet is a raw advertising or scan response payload made of AD structures.
type Packet []byte

// Fields returns the data of every AD structure of the given type, in order.
func (p Packet) Fields(typ byte) ([][]byte, error) {
	var out [][]byte
	b := p
	for len(b) > 0 {
		l := int(b[0])
		if l == 0 {
			// Zero length marks the significant part's end.
			return out, nil
		}
		if len(b) < 1+l {
			return out, errors.Errorf("truncated AD structure: need %d bytes, have %d", 1+l, len(b))
		}
		if b[1] == typ {
			out = append(out, b[2:1+l])
		}
		b = b[1+l:]
	}
	return out, nil
}

// LocalName prefers the complete name over the shortened one.
func (p Packet) LocalName() string {
	if f, _ := p.Fields(adCompleteName); len(f) > 0 {
		return string(f[0])
	}
	if f, _ := p.Fields(adShortName); len(f) > 0 {
		return string(f[0])
	}
	return ""
}

// ManufacturerSections decodes every manufacturer specific data field.
// Fields shorter than the two byte company identifier are skipped.
func (p Packet) ManufacturerSections() []domain.ManufacturerSection {
	fields, _ := p.Fields(adManufacturerData)
	var out []domain.ManufacturerSection
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		payload := make([]byte, len(f)-2)
		copy(payload, f[2:])
		out = append(out, domain.ManufacturerSection{
			CompanyID: binary.LittleEndian.Uint16(f[:2]),
			Payload:   payload,
		})
	}
	return out
}

// AppendField appends a single AD structure.
func (p Packet) AppendField(typ byte, b []byte) Packet {
	p = append(p, byte(len(b)+1), typ)
	return append(p, b...)
}

func (p Packet) AppendCompleteName(n string) Packet {
	return p.AppendField(adCompleteName, []byte(n))
}

func (p Packet) AppendManufacturerData(id uint16, b []byte) Packet {
	d := append([]byte{uint8(id), uint8(id >> 8)}, b...)
	return p.AppendField(adManufacturerData, d)
}

// ParsePacket validates the AD structures of b and returns the local name and
// every manufacturer section it carries.
func ParsePacket(b []byte) (string, []domain.ManufacturerSection, error) {
	p := Packet(b)
	if _, err := p.Fields(0); err != nil {
		return "", nil, errors.Wrap(err, "parse advertisement")
	}
	return p.LocalName(), p.ManufacturerSections(), nil
}
