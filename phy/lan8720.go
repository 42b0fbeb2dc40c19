package phy

// LAN8720-class vendor registers, expressed for one representative family
// (Microchip LAN8720/LAN8742) so the Bus trait has a concrete, testable
// collaborator beyond the clause-22 baseline.
const (
	RegLAN8720SpecialModes  = 0x12
	RegLAN8720SpecialStatus = 0x1f
)

// Special Status register bits (register 0x1f): bits [4:2] report the
// resolved speed/duplex once auto-negotiation completes.
const (
	LAN8720SpeedDuplexMask uint16 = 0x7 << 2
	LAN8720Speed10Half     uint16 = 0x1 << 2
	LAN8720Speed10Full     uint16 = 0x5 << 2
	LAN8720Speed100Half    uint16 = 0x2 << 2
	LAN8720Speed100Full    uint16 = 0x6 << 2
)

// Speed/duplex as decoded from the LAN8720 Special Status register.
type SpeedDuplex struct {
	MbpsSpeed  int
	FullDuplex bool
}

// LAN8720ResolvedSpeed reads the Special Status register and decodes the
// negotiated speed/duplex pair.
func LAN8720ResolvedSpeed(b Bus, phyAddr uint8) (SpeedDuplex, error) {
	v, err := b.ReadReg(phyAddr, RegLAN8720SpecialStatus)
	if err != nil {
		return SpeedDuplex{}, err
	}
	switch v & LAN8720SpeedDuplexMask {
	case LAN8720Speed10Half:
		return SpeedDuplex{10, false}, nil
	case LAN8720Speed10Full:
		return SpeedDuplex{10, true}, nil
	case LAN8720Speed100Half:
		return SpeedDuplex{100, false}, nil
	case LAN8720Speed100Full:
		return SpeedDuplex{100, true}, nil
	default:
		return SpeedDuplex{}, nil
	}
}
