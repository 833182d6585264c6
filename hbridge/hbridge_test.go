package hbridge

import "testing"

type fakePin struct {
	digital   uint8
	analog    uint32
	period    uint32
	analogSet bool
}

func (p *fakePin) SetDigitalValue(v uint8)  { p.digital = v; p.analogSet = false }
func (p *fakePin) GetDigitalValue() uint8   { return p.digital }
func (p *fakePin) SetAnalogPeriodUs(us uint32) { p.period = us }
func (p *fakePin) SetAnalogValue(raw uint32) { p.analog = raw; p.analogSet = true }

func TestBrakeBothHigh(t *testing.T) {
	fwd, rev := &fakePin{}, &fakePin{}
	d := New(fwd, rev, 0)
	d.Brake()
	if fwd.digital != 1 || rev.digital != 1 {
		t.Fatalf("Brake: fwd=%d rev=%d, want 1,1", fwd.digital, rev.digital)
	}
}

func TestCoastBothLow(t *testing.T) {
	fwd, rev := &fakePin{}, &fakePin{}
	d := New(fwd, rev, 0)
	fwd.digital, rev.digital = 1, 1
	d.Coast()
	if fwd.digital != 0 || rev.digital != 0 {
		t.Fatalf("Coast: fwd=%d rev=%d, want 0,0", fwd.digital, rev.digital)
	}
}

func TestPowerFastDecayZeroIsCoast(t *testing.T) {
	fwd, rev := &fakePin{}, &fakePin{}
	d := New(fwd, rev, 0)
	d.PowerFastDecay(0)
	if fwd.digital != 0 || rev.digital != 0 {
		t.Fatalf("PowerFastDecay(0): fwd=%d rev=%d, want 0,0", fwd.digital, rev.digital)
	}
}

func TestPowerFastDecaySaturatesHigh(t *testing.T) {
	fwd, rev := &fakePin{}, &fakePin{}
	d := New(fwd, rev, 0)
	d.PowerFastDecay(100)
	if fwd.digital != 1 {
		t.Fatalf("PowerFastDecay(100): fwd digital=%d, want 1 (static high)", fwd.digital)
	}
	if rev.digital != 0 || rev.analogSet {
		t.Fatalf("PowerFastDecay(100): rev should be held low, got digital=%d analogSet=%v", rev.digital, rev.analogSet)
	}
}

func TestPowerFastDecayNegativeDrivesReverse(t *testing.T) {
	fwd, rev := &fakePin{}, &fakePin{}
	d := New(fwd, rev, 0)
	d.PowerFastDecay(-50)
	if fwd.digital != 0 {
		t.Fatalf("PowerFastDecay(-50): fwd digital=%d, want 0", fwd.digital)
	}
	if !rev.analogSet || rev.analog == 0 {
		t.Fatalf("PowerFastDecay(-50): rev should PWM with nonzero value, got analogSet=%v value=%d", rev.analogSet, rev.analog)
	}
}

func TestPowerSlowDecayZeroIsBrake(t *testing.T) {
	fwd, rev := &fakePin{}, &fakePin{}
	d := New(fwd, rev, 0)
	d.PowerSlowDecay(0)
	if fwd.digital != 1 || rev.digital != 1 {
		t.Fatalf("PowerSlowDecay(0): fwd=%d rev=%d, want 1,1 (brake)", fwd.digital, rev.digital)
	}
}

func TestPowerSlowDecaySaturatesLow(t *testing.T) {
	fwd, rev := &fakePin{}, &fakePin{}
	d := New(fwd, rev, 0)
	d.PowerSlowDecay(100)
	if rev.digital != 0 {
		t.Fatalf("PowerSlowDecay(100): rev digital=%d, want 0 (static low)", rev.digital)
	}
	if fwd.digital != 1 || fwd.analogSet {
		t.Fatalf("PowerSlowDecay(100): fwd should be held high, got digital=%d analogSet=%v", fwd.digital, fwd.analogSet)
	}
}

func TestPowerSlowDecayPositivePWMsReverseTowardLow(t *testing.T) {
	fwd, rev := &fakePin{}, &fakePin{}
	d := New(fwd, rev, 0)
	d.PowerSlowDecay(50)
	if fwd.digital != 1 {
		t.Fatalf("PowerSlowDecay(50): fwd digital=%d, want 1", fwd.digital)
	}
	if !rev.analogSet {
		t.Fatalf("PowerSlowDecay(50): rev should PWM")
	}
	if rev.analog >= FullScale {
		t.Fatalf("PowerSlowDecay(50): rev analog=%d should be below FullScale (selected pin stays low more)", rev.analog)
	}
}

func TestClampDuty(t *testing.T) {
	fwd, rev := &fakePin{}, &fakePin{}
	d := New(fwd, rev, 0)
	d.PowerFastDecay(120)
	if fwd.digital != 1 {
		t.Fatalf("PowerFastDecay(120) should saturate exactly as PowerFastDecay(100)")
	}
}

func TestDefaultPeriod(t *testing.T) {
	fwd, rev := &fakePin{}, &fakePin{}
	d := New(fwd, rev, 0)
	if d.PeriodUs() != DefaultPeriodUs {
		t.Fatalf("PeriodUs() = %d, want default %d", d.PeriodUs(), DefaultPeriodUs)
	}
}
