// Package quaddec implements the software quadrature decoder: it
// infers direction and position from interrupts on phase A alone,
// sampling phase B by level read inside the handler. This is the
// software stand-in for a hardware quadrature-decoder peripheral, used
// when only one "safe" interrupt-capable pin is available.
//
// Algorithm grounded on original_source/source/SoftQDec.cpp
// (sh1boot/testqdec, mbed/MicroBit). See DESIGN.md for the two Open
// Question resolutions this package makes: the additive (not
// absolute-overwrite) form of Poll, and the split OnRise/OnFall
// handlers with no polarity inversion.
package quaddec

import "github.com/quadrature-io/tachomotor/hal"

// attachState tracks DETACHED/ATTACHED per spec.md §4.2.
type attachState uint8

const (
	detached attachState = iota
	attached
)

// Decoder is a software quadrature decoder bound to one A-phase
// edge-capable pin and one B-phase level-read pin.
type Decoder struct {
	id     uint16
	phaseA hal.EdgeSource
	phaseB hal.Pin
	clock  hal.Clock

	state attachState

	// countstate is the 32-bit working counter. Its bottom two bits
	// are forced, after every edge, to latchedA*3 (0b00 or 0b11).
	countstate int32

	// livestamp/latchstamp are microsecond timestamps of the most
	// recent "significant" edge and the one before it. Diagnostic
	// only; never exported.
	livestamp  uint32
	latchstamp uint32

	// position is the exported 64-bit position. Poll replaces its
	// bottom 32 bits from countstate^B; ResetPosition sets it whole.
	position int64

	samplePeriodUs uint32
}

const defaultSamplePeriodUs = 10000
const maxSamplePeriodUs = 1_000_000

// New constructs a Decoder bound to the given phase pins. The decoder
// is inert (DETACHED) until Start.
func New(id uint16, phaseA hal.EdgeSource, phaseB hal.Pin, clock hal.Clock) *Decoder {
	return &Decoder{
		id:             id,
		phaseA:         phaseA,
		phaseB:         phaseB,
		clock:          clock,
		samplePeriodUs: defaultSamplePeriodUs,
	}
}

// SetSamplePeriodUs sets the maximum interval between Poll calls the
// caller intends to honor. It is advisory bookkeeping only — quaddec
// does not schedule its own polling — but an out-of-range value is
// rejected so misconfiguration is caught at setup, not silently.
func (d *Decoder) SetSamplePeriodUs(periodUs uint32) error {
	if periodUs == 0 || periodUs > maxSamplePeriodUs {
		return hal.InvalidParameter
	}
	d.samplePeriodUs = periodUs
	return nil
}

// Start attaches this decoder to the hardware clock pin, subscribing
// to both edges of phase A. It fails with hal.Busy if the pin is
// already claimed by a sibling decoder instance.
func (d *Decoder) Start() error {
	if d.state == attached {
		return nil
	}
	now := d.clock.NowUs()
	d.livestamp, d.latchstamp = now, now

	if err := d.phaseA.Listen(d.id, hal.Rise, d.onRise, true); err != nil {
		return err
	}
	if err := d.phaseA.Listen(d.id, hal.Fall, d.onFall, true); err != nil {
		d.phaseA.Ignore(d.id, hal.Rise)
		return err
	}
	d.state = attached
	return nil
}

// Stop detaches the decoder and releases the edge source. Never
// fails.
func (d *Decoder) Stop() {
	if d.state != attached {
		return
	}
	d.phaseA.Ignore(d.id, hal.Rise)
	d.phaseA.Ignore(d.id, hal.Fall)
	d.state = detached
}

// updateCountState folds one A-edge into the working counter: a
// counted (B==0) edge adds 1-2*A, then the bottom two bits are always
// forced to A*3 — the invariant checked by property test 1.
func updateCountState(state int32, a, b int) int32 {
	if b == 0 {
		state += int32(1 - 2*a)
	}
	return (state &^ 3) | int32(a*3)
}

// onRise is the rising-edge handler: A is known to be 1 (no inversion
// — see DESIGN.md Open Question decision 2).
func (d *Decoder) onRise(timestampUs uint32) {
	d.edge(1, timestampUs)
}

// onFall is the falling-edge handler: A is known to be 0.
func (d *Decoder) onFall(timestampUs uint32) {
	d.edge(0, timestampUs)
}

func (d *Decoder) edge(a int, timestampUs uint32) {
	b := int(d.phaseB.GetDigitalValue())
	d.countstate = updateCountState(d.countstate, a, b)

	// Timestamps always roll; a B==0 edge additionally records a
	// fresh livestamp. Kept only as an internal speed diagnostic —
	// never exported (spec.md §4.2).
	d.latchstamp = d.livestamp
	if b == 0 {
		d.livestamp = timestampUs
	}
}

// Poll samples phase B and folds it into the exported position. It
// must be called at least once per maximum-expected-count-rate
// window (<=100ms is safe under 10kHz) and is idempotent between
// edges.
//
// This implements the additive form: position moves by
// current - int32(position), so its bottom 32 bits become countstate^B
// and the multiple of 2^32 that position held beyond its sign-extended
// low word is kept (a move from 0 to -4 still sign-extends into the
// upper bits). See DESIGN.md Open Question decision 1.
func (d *Decoder) Poll() {
	current := d.countstate ^ int32(d.phaseB.GetDigitalValue())
	delta := int64(current) - int64(int32(d.position))
	d.position += delta
}

// GetPosition returns the most recently Poll'd position.
func (d *Decoder) GetPosition() int64 {
	return d.position
}

// ResetPosition sets the exported position to p, and primes the
// working counter's high bits from p and its low two bits from the
// current phase-A level. A subsequent Poll with a stable phase B
// yields p with its low two bits replaced by A*3 XOR B, which is p
// itself only when p's low two bits already equal that value.
func (d *Decoder) ResetPosition(p int64) {
	a := int32(d.phaseA.GetDigitalValue())
	d.countstate = (int32(p) &^ 3) | a*3
	d.position = p
}
