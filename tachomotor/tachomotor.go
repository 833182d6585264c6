// Package tachomotor implements the mode state machine that drives
// one H-bridge from one quadrature decoder and speed estimator under
// PID control. Algorithm grounded on
// original_source/source/TachoMotor.h/.cpp (the mbed TachoMotor
// class); restructured as a single Motor value with exported command
// methods instead of a MicroBitComponent subclass, and the control
// law fields made first-class function values (see DESIGN.md Open
// Question decision 3) instead of virtual methods.
package tachomotor

import (
	"github.com/quadrature-io/tachomotor/hal"
	"github.com/quadrature-io/tachomotor/hbridge"
	"github.com/quadrature-io/tachomotor/pidctl"
	"github.com/quadrature-io/tachomotor/quaddec"
	"github.com/quadrature-io/tachomotor/speedest"
)

// Mode is one of the seven operating modes of the state machine.
type Mode uint8

const (
	Sleep Mode = iota
	Coast
	Brake
	Power
	Speed
	Track
	Position
)

func (m Mode) String() string {
	switch m {
	case Sleep:
		return "SLEEP"
	case Coast:
		return "COAST"
	case Brake:
		return "BRAKE"
	case Power:
		return "POWER"
	case Speed:
		return "SPEED"
	case Track:
		return "TRACK"
	case Position:
		return "POSITION"
	default:
		return "???"
	}
}

// PollPeriodUs is the periodic tick period attached while the motor
// is in any non-Sleep mode.
const PollPeriodUs = 2000

// ControlLaw computes a new raw PID command. duty is the
// currently-applied duty, carried through so an overriding caller can
// see it; the default implementations ignore it and always return a
// fresh pid.Output(...) (see DESIGN.md Open Question decision 3).
type ControlLaw func(pid *pidctl.State, duty int8) int32

// Motor is one closed-loop axis: an H-bridge, a quadrature decoder,
// a speed estimator, and the PID/mode logic binding them together.
// The zero value is not usable; construct with New.
type Motor struct {
	id      uint16
	bridge  *hbridge.Driver
	decoder *quaddec.Decoder
	speed   *speedest.Estimator
	ticker  hal.Ticker
	clock   hal.Clock

	state, nextState Mode
	targetPosition   int64
	targetSpeed      int32
	duty             int8
	triggerPosition  int64

	pid pidctl.State

	// Gains are Q16.16 fixed-point, mutated only by the console/config
	// layer between ticks.
	SpeedP, SpeedI, SpeedD          int32
	PositionP, PositionI, PositionD int32

	FollowSpeed    ControlLaw
	FollowPosition ControlLaw
}

// New constructs a Motor in SLEEP over the given H-bridge, decoder,
// speed estimator, ticker, and clock, with the original firmware's
// default gains.
func New(id uint16, bridge *hbridge.Driver, decoder *quaddec.Decoder, speed *speedest.Estimator, ticker hal.Ticker, clock hal.Clock) *Motor {
	m := &Motor{
		id:        id,
		bridge:    bridge,
		decoder:   decoder,
		speed:     speed,
		ticker:    ticker,
		clock:     clock,
		SpeedP:    1576,
		SpeedI:    100,
		SpeedD:    0,
		PositionP: 6 * 65536,
		PositionI: 0,
		PositionD: 0,
	}
	m.FollowSpeed = m.defaultFollowSpeed
	m.FollowPosition = m.defaultFollowPosition
	return m
}

func (m *Motor) defaultFollowSpeed(pid *pidctl.State, _ int8) int32 {
	return pid.Output(m.SpeedP, m.SpeedI, m.SpeedD)
}

func (m *Motor) defaultFollowPosition(pid *pidctl.State, _ int8) int32 {
	return pid.Output(m.PositionP, m.PositionI, m.PositionD)
}

// start brings the decoder and tick up; called on the SLEEP->non-SLEEP
// edge only.
func (m *Motor) start() error {
	if err := m.decoder.Start(); err != nil {
		return err
	}
	return m.ticker.AttachUs(m.PidTick, PollPeriodUs)
}

// stop tears the tick and decoder down; called on the non-SLEEP->SLEEP
// edge only.
func (m *Motor) stop() {
	m.ticker.Detach()
	m.decoder.Stop()
}

func (m *Motor) setState(s Mode) {
	old := m.state

	if old == Sleep && s != Sleep {
		if err := m.start(); err != nil {
			// decoder/ticker unavailable (e.g. hal.Busy): stay in SLEEP
			// rather than report a mode that isn't actually running.
			m.state, m.nextState = Sleep, Sleep
			return
		}
	}

	m.state, m.nextState = s, s

	switch s {
	case Sleep:
		if old != Sleep {
			m.duty = 0
			m.bridge.Coast()
			m.stop()
		}
	case Coast:
		m.duty = 0
		m.bridge.Coast()
	case Brake:
		m.duty = 0
		m.bridge.Brake()
	case Power:
		m.bridge.PowerSlowDecay(m.duty)
	case Speed, Track:
		if old != s {
			m.pid.Reset()
		}
	case Position:
		m.bridge.Brake()
		m.pid.Reset()
	}
}

func (m *Motor) setNextState(where int64, s Mode) {
	m.targetPosition = where
	m.nextState = s
}

// Sleep enters SLEEP: detaches the tick, stops the decoder, and
// coasts the H-bridge.
func (m *Motor) Sleep() { m.setState(Sleep) }

// Coast enters COAST: duty=0, H-bridge coast.
func (m *Motor) Coast() { m.setState(Coast) }

// Brake enters BRAKE: duty=0, H-bridge brake.
func (m *Motor) Brake() { m.setState(Brake) }

// Go enters POWER with an open-loop duty in [-100,100].
func (m *Motor) Go(dutyPercent int8) {
	m.duty = dutyPercent
	m.setState(Power)
}

// GoAt enters SPEED, running PID against a target speed in counts/s.
func (m *Motor) GoAt(targetSpeed int32) {
	m.targetSpeed = targetSpeed
	m.setState(Speed)
}

// GoTo arms a position trigger: it seeds an open-loop duty of +-100 in
// the direction of target, enters POWER immediately, and schedules a
// transition to andThen once PidTick observes the position crossing
// target. When target equals the current position no duty is seeded
// and the mode is left as it was; only targetPosition and the pending
// mode are recorded.
func (m *Motor) GoTo(target int64, andThen Mode) {
	p := m.decoder.GetPosition()
	switch {
	case p < target:
		m.Go(100)
	case target < p:
		m.Go(-100)
	}
	m.setNextState(target, andThen)
}

func saturateDuty(v int32) int8 {
	if v > 100 {
		return 100
	}
	if v < -100 {
		return -100
	}
	return int8(v)
}

// PidTick runs one control cycle: poll the decoder, update the speed
// estimate, check for an armed position-trigger crossing, then
// dispatch the PID control law for the current mode. It must be
// called at PollPeriodUs, normally by the attached hal.Ticker.
func (m *Motor) PidTick() {
	m.decoder.Poll()
	p := m.decoder.GetPosition()
	t := m.clock.NowUs()
	m.speed.Update(p, t)
	q := m.speed.GetSpeed()

	if m.state != m.nextState {
		if (m.duty > 0 && p >= m.targetPosition) || (m.duty < 0 && p <= m.targetPosition) {
			m.triggerPosition = p
			m.setState(m.nextState)
		}
	}

	switch m.state {
	case Speed:
		m.pid.Update(int64(m.targetSpeed), int64(q))
		m.duty = saturateDuty(m.FollowSpeed(&m.pid, m.duty))
		m.bridge.PowerSlowDecay(m.duty)
	case Track, Position:
		m.pid.Update(m.targetPosition, p)
		m.duty = saturateDuty(m.FollowPosition(&m.pid, m.duty))
		m.bridge.PowerSlowDecay(m.duty)
	}
}

// GetPosition returns the decoder's most recently polled position.
func (m *Motor) GetPosition() int64 { return m.decoder.GetPosition() }

// GetSpeed returns the estimator's most recent velocity reading.
func (m *Motor) GetSpeed() int32 { return m.speed.GetSpeed() }

// Snapshot is a point-in-time read of everything the console needs
// to render a status line. Grounded on original_source's
// TachoMotor::peek/pidpeek pair and the public triggerPosition field,
// folded into one typed value (see SPEC_FULL.md §4 "peek()/pidpeek()
// accessors").
type Snapshot struct {
	Mode            string
	Position        int64
	Speed           int32
	TargetPosition  int64
	TargetSpeed     int32
	Duty            int8
	TriggerPosition int64

	Error int32
	Sigma int64
	Delta int32

	SpeedP, SpeedI, SpeedD          int32
	PositionP, PositionI, PositionD int32
}

// Snapshot returns the current state for display or telemetry.
func (m *Motor) Snapshot() Snapshot {
	return Snapshot{
		Mode:            m.state.String(),
		Position:        m.decoder.GetPosition(),
		Speed:           m.speed.GetSpeed(),
		TargetPosition:  m.targetPosition,
		TargetSpeed:     m.targetSpeed,
		Duty:            m.duty,
		TriggerPosition: m.triggerPosition,
		Error:           m.pid.Error,
		Sigma:           m.pid.Sigma,
		Delta:           m.pid.Delta,
		SpeedP:          m.SpeedP,
		SpeedI:          m.SpeedI,
		SpeedD:          m.SpeedD,
		PositionP:       m.PositionP,
		PositionI:       m.PositionI,
		PositionD:       m.PositionD,
	}
}
