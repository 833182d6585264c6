// Package hal defines the narrow hardware interfaces the control core
// is built against: digital/analog pin I/O, edge-triggered interrupts,
// a microsecond monotonic clock, and a periodic ticker. Concrete
// bindings to real hardware (machinehal) or to a simulation (sim)
// satisfy these interfaces; quaddec, hbridge and tachomotor never
// import a hardware package directly.
package hal

// Edge identifies which transition fired an interrupt.
type Edge uint8

const (
	Rise Edge = iota
	Fall
)

// Pin is a single GPIO line capable of digital and PWM-analog output.
type Pin interface {
	// SetDigitalValue drives the pin high (1) or low (0).
	SetDigitalValue(v uint8)

	// GetDigitalValue reads the instantaneous level of the pin.
	GetDigitalValue() uint8

	// SetAnalogPeriodUs sets the PWM period used by SetAnalogValue.
	SetAnalogPeriodUs(periodUs uint32)

	// SetAnalogValue drives a PWM duty cycle; raw is in the device's
	// native duty range (0..FULL, see hbridge.FullScale).
	SetAnalogValue(raw uint32)
}

// EdgeHandler is invoked from interrupt context; timestampUs is the
// microsecond monotonic time of the edge.
type EdgeHandler func(timestampUs uint32)

// EdgeSource is a pin that can additionally dispatch edge interrupts.
// Only one decoder may be attached (Listen'd) to a given EdgeSource at
// a time; a second Listen on an already-claimed source returns Busy.
type EdgeSource interface {
	Pin

	// Listen subscribes handler to the given edge kind. immediate
	// requests zero-latency (ISR-context) delivery where the
	// underlying event bus supports it.
	Listen(id uint16, e Edge, handler EdgeHandler, immediate bool) error

	// Ignore unsubscribes a previously-Listen'd handler.
	Ignore(id uint16, e Edge)
}

// Clock is a free-running microsecond monotonic counter. It wraps
// around at 2^32 (about 71 minutes); callers must difference two
// readings as signed 32-bit values to get an elapsed time that is
// correct across a wraparound.
type Clock interface {
	NowUs() uint32
}

// TickHandler is invoked from the periodic ticker's callback context.
type TickHandler func()

// Ticker delivers TickHandler at a fixed period until Detach.
type Ticker interface {
	AttachUs(handler TickHandler, periodUs uint32) error
	Detach()
}

// CustomError is a lightweight string-based error, used for the
// decoder error codes below instead of errors.New/fmt.Errorf so that
// error values can be compared with ==, the convention the teacher driver packages
// (tmc5160, tmc2209) use for the same reason: it stays usable on a
// target with no heap-allocating error wrapping.
type CustomError string

func (e CustomError) Error() string { return string(e) }

// Decoder error codes named directly in spec.md §6/§7.
const (
	// Busy is returned from Start when the hardware clock pin is
	// already attached to a sibling decoder instance.
	Busy CustomError = "hal: resource busy"

	// InvalidParameter is returned when a configuration value (for
	// example a sample period) is outside the supported range.
	InvalidParameter CustomError = "hal: invalid parameter"
)
