// Package hbridge drives a complementary H-bridge stage from two
// pins, producing fast-decay and slow-decay PWM plus hard brake/coast
// states. Algorithm grounded on original_source/source/GenericMotor.cpp
// (sh1boot/testqdec), restructured in the teacher's driver-package
// shape (tmc5160.Driver: a struct over two interface-typed pins with
// a Setup-then-use lifecycle).
package hbridge

import "github.com/quadrature-io/tachomotor/hal"

// FullScale is the device's native analog duty range; PowerFastDecay
// and PowerSlowDecay scale a [-100,100] percentage to
// raw = duty * FullScale / 100.
const FullScale = 1023

// DefaultPeriodUs is the PWM period used when Driver is constructed
// with period 0.
const DefaultPeriodUs = 100

// Driver wraps the forward and reverse pins of one H-bridge stage.
type Driver struct {
	fwd, rev hal.Pin
	periodUs uint32
}

// New constructs a Driver over the given pins with the given PWM
// period. A period of 0 selects DefaultPeriodUs.
func New(fwd, rev hal.Pin, periodUs uint32) *Driver {
	if periodUs == 0 {
		periodUs = DefaultPeriodUs
	}
	return &Driver{fwd: fwd, rev: rev, periodUs: periodUs}
}

// Brake drives both pins high, shorting the motor windings together.
func (d *Driver) Brake() {
	d.fwd.SetDigitalValue(1)
	d.rev.SetDigitalValue(1)
}

// Coast drives both pins low, leaving the motor windings floating.
func (d *Driver) Coast() {
	d.fwd.SetDigitalValue(0)
	d.rev.SetDigitalValue(0)
}

func clampDuty(duty int8) int8 {
	if duty > 100 {
		return 100
	}
	if duty < -100 {
		return -100
	}
	return duty
}

// PowerFastDecay drives duty (percent, -100..100) using fast-decay
// modulation: the non-selected pin is held low, the selected pin PWMs
// proportional to |duty|, saturating to a static high at +-100. At
// duty=0 both pins are low, i.e. coast.
func (d *Driver) PowerFastDecay(duty int8) {
	duty = clampDuty(duty)
	pwm := int32(duty) * FullScale / 100

	switch {
	case pwm >= FullScale:
		d.fwd.SetDigitalValue(1)
	case pwm > 0:
		d.fwd.SetAnalogPeriodUs(d.periodUs)
		d.fwd.SetAnalogValue(uint32(pwm))
	default:
		d.fwd.SetDigitalValue(0)
	}

	switch {
	case pwm <= -FullScale:
		d.rev.SetDigitalValue(1)
	case pwm < 0:
		d.rev.SetAnalogPeriodUs(d.periodUs)
		d.rev.SetAnalogValue(uint32(-pwm))
	default:
		d.rev.SetDigitalValue(0)
	}
}

// PowerSlowDecay drives duty (percent, -100..100) using slow-decay
// modulation: the non-selected pin is held high, the selected pin
// PWMs to stay low for |duty|/100 of the period (equivalently driven
// analog with FullScale - |duty|*FullScale/100), saturating to a static low at
// +-100. At duty=0 both pins are high, i.e. brake.
func (d *Driver) PowerSlowDecay(duty int8) {
	duty = clampDuty(duty)
	pwm := int32(duty) * FullScale / 100

	switch {
	case pwm >= FullScale:
		d.rev.SetDigitalValue(0)
	case pwm > 0:
		d.rev.SetAnalogPeriodUs(d.periodUs)
		d.rev.SetAnalogValue(uint32(FullScale - pwm))
	default:
		d.rev.SetDigitalValue(1)
	}

	switch {
	case pwm <= -FullScale:
		d.fwd.SetDigitalValue(0)
	case pwm < 0:
		d.fwd.SetAnalogPeriodUs(d.periodUs)
		d.fwd.SetAnalogValue(uint32(FullScale + pwm))
	default:
		d.fwd.SetDigitalValue(1)
	}
}

// PeriodUs returns the configured PWM period.
func (d *Driver) PeriodUs() uint32 { return d.periodUs }
