package console

import (
	"testing"

	"github.com/quadrature-io/tachomotor/hal"
	"github.com/quadrature-io/tachomotor/hbridge"
	"github.com/quadrature-io/tachomotor/quaddec"
	"github.com/quadrature-io/tachomotor/speedest"
	"github.com/quadrature-io/tachomotor/tachomotor"
)

type fakePin struct{ level uint8 }

func (p *fakePin) SetDigitalValue(v uint8)  { p.level = v }
func (p *fakePin) GetDigitalValue() uint8   { return p.level }
func (p *fakePin) SetAnalogPeriodUs(uint32) {}
func (p *fakePin) SetAnalogValue(uint32)    {}

type fakeEdgeSource struct {
	fakePin
	listeners map[hal.Edge]hal.EdgeHandler
}

func newFakeEdgeSource() *fakeEdgeSource {
	return &fakeEdgeSource{listeners: make(map[hal.Edge]hal.EdgeHandler)}
}
func (s *fakeEdgeSource) Listen(id uint16, e hal.Edge, h hal.EdgeHandler, immediate bool) error {
	s.listeners[e] = h
	return nil
}
func (s *fakeEdgeSource) Ignore(id uint16, e hal.Edge) { delete(s.listeners, e) }

type fakeClock struct{ now uint32 }

func (c *fakeClock) NowUs() uint32 { return c.now }

type fakeTicker struct {
	attached bool
	handler  hal.TickHandler
}

func (t *fakeTicker) AttachUs(h hal.TickHandler, periodUs uint32) error {
	t.attached = true
	t.handler = h
	return nil
}
func (t *fakeTicker) Detach() { t.attached = false }

func newTestMotor() *tachomotor.Motor {
	fwd, rev := &fakePin{}, &fakePin{}
	bridge := hbridge.New(fwd, rev, 0)
	phaseA := newFakeEdgeSource()
	phaseB := &fakePin{}
	clock := &fakeClock{}
	decoder := quaddec.New(1, phaseA, phaseB, clock)
	speed := speedest.New()
	ticker := &fakeTicker{}
	return tachomotor.New(1, bridge, decoder, speed, ticker, clock)
}

func TestDispatchPresetKeys(t *testing.T) {
	m := newTestMotor()
	cmd, ok := Dispatch(m, '3')
	if !ok || cmd != "go(85)" {
		t.Fatalf("Dispatch('3') = (%q, %v), want (\"go(85)\", true)", cmd, ok)
	}
	if snap := m.Snapshot(); snap.Mode != "POWER" || snap.Duty != 85 {
		t.Fatalf("after Dispatch('3'): snapshot = %+v, want POWER/85", snap)
	}
}

func TestDispatchUnrecognizedKey(t *testing.T) {
	m := newTestMotor()
	_, ok := Dispatch(m, 'z')
	if ok {
		t.Fatalf("Dispatch('z') handled = true, want false")
	}
}

func TestDispatchGainTuning(t *testing.T) {
	m := newTestMotor()
	start := m.PositionP
	Dispatch(m, 'p')
	if m.PositionP <= start {
		t.Fatalf("PositionP after 'p' = %d, want > %d", m.PositionP, start)
	}
	after := m.PositionP
	Dispatch(m, 'P')
	if m.PositionP >= after {
		t.Fatalf("PositionP after 'p' then 'P' = %d, want < %d (step recomputed from the raised gain)", m.PositionP, after)
	}
}

func TestGainStepFormula(t *testing.T) {
	cases := map[int32]int32{0: 1, 31: 1, 32: 1, 64: 2, -64: 2}
	for gain, want := range cases {
		if got := gainStep(gain); got != want {
			t.Fatalf("gainStep(%d) = %d, want %d", gain, got, want)
		}
	}
}

func TestExtendedCommandGoTo(t *testing.T) {
	m := newTestMotor()
	if _, err := ExtendedCommand(m, "goto 720 position"); err != nil {
		t.Fatalf("ExtendedCommand: %v", err)
	}
	if snap := m.Snapshot(); snap.Mode != "POWER" || snap.TargetPosition != 720 {
		t.Fatalf("after goto 720 position: snapshot = %+v", snap)
	}
}

func TestExtendedCommandGoAt(t *testing.T) {
	m := newTestMotor()
	if _, err := ExtendedCommand(m, "goat -720"); err != nil {
		t.Fatalf("ExtendedCommand: %v", err)
	}
	if snap := m.Snapshot(); snap.Mode != "SPEED" || snap.TargetSpeed != -720 {
		t.Fatalf("after goat -720: snapshot = %+v", snap)
	}
}

func TestExtendedCommandUnknownVerb(t *testing.T) {
	m := newTestMotor()
	if _, err := ExtendedCommand(m, "frobnicate 1 2 3"); err == nil {
		t.Fatalf("ExtendedCommand(frobnicate): expected error, got nil")
	}
}

func TestExtendedCommandGoRejectsOutOfRangeDuty(t *testing.T) {
	m := newTestMotor()
	if _, err := ExtendedCommand(m, "go 200"); err == nil {
		t.Fatalf("ExtendedCommand(go 200): expected error, got nil")
	}
	if snap := m.Snapshot(); snap.Mode != "SLEEP" {
		t.Fatalf("after rejected go 200: snapshot.Mode = %q, want SLEEP unchanged", snap.Mode)
	}
}
