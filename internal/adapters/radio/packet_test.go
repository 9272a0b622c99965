package radio

import (
	"bytes"
	"testing"
)

func TestParsePacketSections(t *testing.T) {
	p := Packet(nil).
		AppendField(0x01, []byte{0x06}).
		AppendCompleteName("Tag").
		AppendManufacturerData(0x004C, []byte{0x02, 0x15}).
		AppendManufacturerData(0x0059, []byte{0xAA})

	name, sections, err := ParsePacket(p)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if name != "Tag" {
		t.Fatalf("expected local name Tag, got %q", name)
	}
	if len(sections) != 2 {
		t.Fatalf("expected 2 manufacturer sections, got %d", len(sections))
	}
	if sections[0].CompanyID != 76 || !bytes.Equal(sections[0].Payload, []byte{0x02, 0x15}) {
		t.Fatalf("unexpected first section %+v", sections[0])
	}
	if sections[1].CompanyID != 0x0059 {
		t.Fatalf("unexpected second section %+v", sections[1])
	}
}

func TestParsePacketShortName(t *testing.T) {
	p := Packet(nil).AppendField(adShortName, []byte("Tg"))
	if got := p.LocalName(); got != "Tg" {
		t.Fatalf("expected short name, got %q", got)
	}
}

func TestParsePacketTruncated(t *testing.T) {
	p := Packet{0x05, adManufacturerData, 0x4C}
	if _, _, err := ParsePacket(p); err == nil {
		t.Fatalf("expected truncated packet error")
	}
}

func TestParsePacketSkipsShortManufacturerField(t *testing.T) {
	p := Packet(nil).AppendField(adManufacturerData, []byte{0x4C})
	_, sections, err := ParsePacket(p)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(sections) != 0 {
		t.Fatalf("expected short field to be skipped, got %+v", sections)
	}
}

func TestParsePacketStopsAtZeroLength(t *testing.T) {
	p := Packet(nil).AppendCompleteName("A")
	p = append(p, 0x00, 0xFF, 0xFF)
	if _, _, err := ParsePacket(p); err != nil {
		t.Fatalf("zero padding should end parsing, got %v", err)
	}
}
