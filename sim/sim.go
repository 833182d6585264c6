// Package sim implements a host-only simulated DC motor and
// quadrature encoder so the whole control stack (hbridge, quaddec,
// speedest, pidctl, tachomotor) can run and be exercised without real
// hardware. Plain struct-and-method shape, no build tag, matching
// max6675.Device; it simulates a transport instead of wrapping one.
// Not a spec.md module — demo/ops tooling for cmd/tachosim.
package sim

import (
	"math"

	"github.com/quadrature-io/tachomotor/hal"
	"github.com/quadrature-io/tachomotor/hbridge"
)

// quadStep is one point in the Gray-code cycle a real two-phase
// encoder produces: 00 -> 01 -> 11 -> 10 -> 00 going forward.
type quadStep struct{ a, b uint8 }

var quadCycle = [4]quadStep{{0, 0}, {0, 1}, {1, 1}, {1, 0}}

// Clock is a manually-advanced hal.Clock: the simulation owns
// simulated time, there is no wall-clock relationship.
type Clock struct{ nowUs uint32 }

func (c *Clock) NowUs() uint32 { return c.nowUs }

// Advance moves simulated time forward by dtUs microseconds.
func (c *Clock) Advance(dtUs uint32) { c.nowUs += dtUs }

// Ticker is a hal.Ticker driven by the simulation's own step loop
// rather than a real timer interrupt.
type Ticker struct {
	handler  hal.TickHandler
	periodUs uint32
	clock    *Clock
	nextFire uint32
}

func NewTicker(clock *Clock) *Ticker { return &Ticker{clock: clock} }

func (t *Ticker) AttachUs(h hal.TickHandler, periodUs uint32) error {
	t.handler = h
	t.periodUs = periodUs
	t.nextFire = t.clock.NowUs() + periodUs
	return nil
}

func (t *Ticker) Detach() { t.handler = nil }

// Fire invokes the handler as many times as are due at the clock's
// current simulated time. Call once per simulation step, after
// advancing the clock.
func (t *Ticker) Fire() {
	if t.handler == nil {
		return
	}
	now := t.clock.NowUs()
	for int32(now-t.nextFire) >= 0 {
		t.handler()
		t.nextFire += t.periodUs
	}
}

// bridgePin is one half of the simulated H-bridge stage; it records
// whatever hbridge.Driver last wrote so Motor.step can reconstruct the
// applied duty.
type bridgePin struct {
	digital   uint8
	analog    uint32
	analogSet bool
}

func (p *bridgePin) SetDigitalValue(v uint8)  { p.digital = v; p.analogSet = false }
func (p *bridgePin) GetDigitalValue() uint8   { return p.digital }
func (p *bridgePin) SetAnalogPeriodUs(uint32) {}
func (p *bridgePin) SetAnalogValue(raw uint32) {
	p.analog = raw
	p.analogSet = true
}

// encoderPin is the phase-B level-read pin of the simulated encoder.
type encoderPin struct{ level uint8 }

func (p *encoderPin) SetDigitalValue(uint8)    {}
func (p *encoderPin) GetDigitalValue() uint8   { return p.level }
func (p *encoderPin) SetAnalogPeriodUs(uint32) {}
func (p *encoderPin) SetAnalogValue(uint32)    {}

// edgeSource is the phase-A interrupt source of the simulated encoder.
type edgeSource struct {
	encoderPin
	listeners map[hal.Edge]hal.EdgeHandler
	claimedBy *uint16
}

func newEdgeSource() *edgeSource {
	return &edgeSource{listeners: make(map[hal.Edge]hal.EdgeHandler)}
}

func (s *edgeSource) Listen(id uint16, e hal.Edge, h hal.EdgeHandler, immediate bool) error {
	if s.claimedBy != nil && *s.claimedBy != id {
		return hal.Busy
	}
	s.claimedBy = &id
	s.listeners[e] = h
	return nil
}

func (s *edgeSource) Ignore(id uint16, e hal.Edge) {
	delete(s.listeners, e)
	if len(s.listeners) == 0 {
		s.claimedBy = nil
	}
}

// Motor simulates one DC motor + gearbox + quadrature encoder pair
// driven by an hbridge.Driver. TimeConstantUs and MaxSpeedCps model a
// first-order response from applied duty to steady-state velocity;
// defaults are chosen to settle visibly within a few hundred
// milliseconds under cmd/tachosim's default tick rate.
type Motor struct {
	Fwd, Rev hal.Pin
	PhaseA   hal.EdgeSource
	PhaseB   hal.Pin

	TimeConstantUs float64
	MaxSpeedCps    float64

	fwdPin, revPin *bridgePin
	phaseAPin      *edgeSource
	phaseBPin      *encoderPin

	clock *Clock

	velocityCps  float64
	fracPosition float64
	quadIndex    int
}

// NewMotor constructs a simulated motor bound to its own simulated
// pins, ready to be wired into an hbridge.Driver and a quaddec.Decoder.
func NewMotor(clock *Clock) *Motor {
	fwd, rev := &bridgePin{}, &bridgePin{}
	phaseA := newEdgeSource()
	phaseB := &encoderPin{}
	return &Motor{
		Fwd: fwd, Rev: rev,
		PhaseA: phaseA, PhaseB: phaseB,
		TimeConstantUs: 50_000,
		MaxSpeedCps:    2000,
		fwdPin:         fwd, revPin: rev,
		phaseAPin: phaseA, phaseBPin: phaseB,
		clock: clock,
	}
}

// effectiveDutyPercent reconstructs the signed duty in [-100,100] an
// hbridge.Driver most recently applied, distinguishing fast- and
// slow-decay modulation by which side is held statically and which is
// PWMing (see hbridge.PowerFastDecay / PowerSlowDecay).
func (m *Motor) effectiveDutyPercent() float64 {
	fwd, rev := m.fwdPin, m.revPin
	const full = float64(hbridge.FullScale)

	switch {
	case !fwd.analogSet && !rev.analogSet && fwd.digital == 1 && rev.digital == 1:
		return 0 // brake
	case !fwd.analogSet && !rev.analogSet && fwd.digital == 0 && rev.digital == 0:
		return 0 // coast
	case fwd.analogSet && rev.digital == 0 && !rev.analogSet:
		return 100 * float64(fwd.analog) / full // fast decay, positive
	case rev.analogSet && fwd.digital == 0 && !fwd.analogSet:
		return -100 * float64(rev.analog) / full // fast decay, negative
	case fwd.digital == 1 && !fwd.analogSet && rev.analogSet:
		return 100 * (1 - float64(rev.analog)/full) // slow decay, positive
	case rev.digital == 1 && !rev.analogSet && fwd.analogSet:
		return -100 * (1 - float64(fwd.analog)/full) // slow decay, negative
	case fwd.digital == 1 && rev.digital == 0:
		return 100 // saturated positive (either decay mode)
	case rev.digital == 1 && fwd.digital == 0:
		return -100 // saturated negative (either decay mode)
	default:
		return 0
	}
}

// Step advances the simulated motor by dtUs microseconds: the
// velocity relaxes toward effectiveDutyPercent()*MaxSpeedCps/100 with
// time constant TimeConstantUs, the resulting displacement is
// integrated, and an encoder edge fires on every whole-count crossing.
func (m *Motor) Step(dtUs uint32) {
	dt := float64(dtUs) / 1_000_000
	target := m.effectiveDutyPercent() / 100 * m.MaxSpeedCps
	tau := m.TimeConstantUs / 1_000_000
	if tau > 0 {
		m.velocityCps += (target - m.velocityCps) * (1 - math.Exp(-dt/tau))
	} else {
		m.velocityCps = target
	}

	m.fracPosition += m.velocityCps * dt
	for m.fracPosition >= 1 {
		m.fracPosition -= 1
		m.advanceQuad(1)
	}
	for m.fracPosition <= -1 {
		m.fracPosition += 1
		m.advanceQuad(-1)
	}
}

func (m *Motor) advanceQuad(dir int) {
	old := quadCycle[m.quadIndex]
	m.quadIndex = (m.quadIndex + dir + 4) % 4
	next := quadCycle[m.quadIndex]

	m.phaseBPin.level = next.b
	if next.a != old.a {
		h, ok := m.phaseAPin.listeners[edgeFor(next.a)]
		if ok {
			h(m.clock.NowUs())
		}
	}
}

func edgeFor(a uint8) hal.Edge {
	if a == 1 {
		return hal.Rise
	}
	return hal.Fall
}
