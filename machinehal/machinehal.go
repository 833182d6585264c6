//go:build tinygo

// Package machinehal adapts the `machine` package's pins, external
// interrupts, and PWM peripherals to the hal interfaces the control
// core is built against. Binding style (unexported wrapper struct over
// a machine.* handle, configured once at construction) grounded on
// tmc5160/spicomm.go and tmc2209/uartcomm.go's //go:build tinygo +
// machine.* adapters.
package machinehal

import (
	"machine"

	"github.com/quadrature-io/tachomotor/hal"
	"github.com/quadrature-io/tachomotor/hbridge"
)

// Pin wraps a machine.Pin plus an optional PWM channel for analog
// output. Digital-only pins (the H-bridge's non-PWMing side) may leave
// pwm nil.
type Pin struct {
	pin machine.Pin
	pwm machine.PWM
	ch  uint8
}

// NewPin wraps a digital-only machine.Pin, configured as output.
// Lego motors' quadrature outputs carry series resistors used for ADC
// part identification; callers of NewEdgeSource/NewLevelPin for those
// lines should configure PullNone, not PullUp/PullDown, to avoid
// fighting that output (see original_source/source/main.cpp).
func NewPin(p machine.Pin) *Pin {
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &Pin{pin: p}
}

// NewPWMPin wraps a machine.Pin driven by the given PWM peripheral,
// for the H-bridge side that needs analog duty output.
func NewPWMPin(p machine.Pin, pwm machine.PWM) (*Pin, error) {
	if err := pwm.Configure(machine.PWMConfig{}); err != nil {
		return nil, err
	}
	ch, err := pwm.Channel(p)
	if err != nil {
		return nil, err
	}
	return &Pin{pin: p, pwm: pwm, ch: ch}, nil
}

func (p *Pin) SetDigitalValue(v uint8) {
	if v != 0 {
		p.pin.High()
	} else {
		p.pin.Low()
	}
}

func (p *Pin) GetDigitalValue() uint8 {
	if p.pin.Get() {
		return 1
	}
	return 0
}

func (p *Pin) SetAnalogPeriodUs(periodUs uint32) {
	if p.pwm == nil {
		return
	}
	p.pwm.SetPeriod(uint64(periodUs) * 1000)
}

func (p *Pin) SetAnalogValue(raw uint32) {
	if p.pwm == nil {
		return
	}
	top := p.pwm.Top()
	p.pwm.Set(p.ch, raw*top/hbridge.FullScale)
}

// LevelPin is a digital-input-only pin, used for the encoder's
// level-read phase (B) and, where the hardware quadrature decoder
// peripheral isn't used, phase A's instantaneous level inside the ISR.
type LevelPin struct{ pin machine.Pin }

// NewLevelPin configures p with PullNone: Lego-style quadrature
// outputs carry their own series resistor and must not be fought by an
// internal pull (original_source/source/main.cpp's
// `getDigitalValue(PullNone)` calls before use).
func NewLevelPin(p machine.Pin) *LevelPin {
	p.Configure(machine.PinConfig{Mode: machine.PinInput})
	return &LevelPin{pin: p}
}

func (p *LevelPin) SetDigitalValue(uint8)      {}
func (p *LevelPin) GetDigitalValue() uint8 {
	if p.pin.Get() {
		return 1
	}
	return 0
}
func (p *LevelPin) SetAnalogPeriodUs(uint32) {}
func (p *LevelPin) SetAnalogValue(uint32)    {}

// EdgeSource binds phase A's rising/falling interrupts to a machine.Pin
// configured for both-edge external interrupts.
type EdgeSource struct {
	LevelPin
	claimedBy *uint16
	rise      hal.EdgeHandler
	fall      hal.EdgeHandler
}

// NewEdgeSource configures p for PullNone input plus a both-edges
// interrupt, dispatching to whichever handler Listen last registered.
func NewEdgeSource(p machine.Pin) *EdgeSource {
	p.Configure(machine.PinConfig{Mode: machine.PinInput})
	src := &EdgeSource{LevelPin: LevelPin{pin: p}}
	p.SetInterrupt(machine.PinRising|machine.PinFalling, src.isr)
	return src
}

func (s *EdgeSource) isr(machine.Pin) {
	now := timeNowUs()
	if s.pin.Get() {
		if s.rise != nil {
			s.rise(now)
		}
	} else if s.fall != nil {
		s.fall(now)
	}
}

func (s *EdgeSource) Listen(id uint16, e hal.Edge, h hal.EdgeHandler, immediate bool) error {
	if s.claimedBy != nil && *s.claimedBy != id {
		return hal.Busy
	}
	s.claimedBy = &id
	switch e {
	case hal.Rise:
		s.rise = h
	case hal.Fall:
		s.fall = h
	}
	return nil
}

func (s *EdgeSource) Ignore(id uint16, e hal.Edge) {
	switch e {
	case hal.Rise:
		s.rise = nil
	case hal.Fall:
		s.fall = nil
	}
	if s.rise == nil && s.fall == nil {
		s.claimedBy = nil
	}
}

// Clock exposes machine's microsecond timer as a hal.Clock.
type Clock struct{}

func (Clock) NowUs() uint32 { return timeNowUs() }

func timeNowUs() uint32 {
	return uint32(machine.GetSystemTimer() / 1000)
}

// Ticker binds a hal.Ticker to one of the target's hardware timer
// peripherals (machine.TimerN), the machine-specific analogue of
// mbed's Ticker::attach_us used in original_source/source/TachoMotor.cpp.
type Ticker struct {
	timer machine.Timer
}

// NewTicker wraps a configured machine.Timer.
func NewTicker(timer machine.Timer) *Ticker { return &Ticker{timer: timer} }

func (t *Ticker) AttachUs(h hal.TickHandler, periodUs uint32) error {
	return t.timer.Configure(machine.TimerConfig{
		PeriodUs: uint64(periodUs),
		Handler:  func() { h() },
	})
}

func (t *Ticker) Detach() {
	t.timer.Stop()
}
