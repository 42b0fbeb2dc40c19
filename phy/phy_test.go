package phy

import "testing"

type fakeBus struct {
	regs map[uint8]uint16
}

func newFakeBus() *fakeBus { return &fakeBus{regs: make(map[uint8]uint16)} }

func (b *fakeBus) ReadReg(phyAddr, reg uint8) (uint16, error) { return b.regs[reg], nil }
func (b *fakeBus) WriteReg(phyAddr, reg uint8, value uint16) error {
	if reg == RegBMCR {
		// BMCR.15 is self-clearing: the modelled PHY finishes its reset
		// before the first read-back.
		value &^= BMCRReset
	}
	b.regs[reg] = value
	return nil
}

func TestResetClearsOnFirstRead(t *testing.T) {
	b := newFakeBus()
	if err := Reset(b, 0); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if b.regs[RegBMCR]&BMCRReset != 0 {
		t.Fatal("expected reset bit cleared")
	}
}

func TestLinkUpReportsBMSR(t *testing.T) {
	b := newFakeBus()
	b.regs[RegBMSR] = BMSRLinkStatus
	up, err := LinkUp(b, 0)
	if err != nil || !up {
		t.Fatalf("got up=%v err=%v, want up=true", up, err)
	}
}

func TestLAN8720ResolvedSpeed(t *testing.T) {
	b := newFakeBus()
	b.regs[RegLAN8720SpecialStatus] = LAN8720Speed100Full
	sd, err := LAN8720ResolvedSpeed(b, 0)
	if err != nil {
		t.Fatalf("LAN8720ResolvedSpeed: %v", err)
	}
	if sd.MbpsSpeed != 100 || !sd.FullDuplex {
		t.Fatalf("got %+v", sd)
	}
}
