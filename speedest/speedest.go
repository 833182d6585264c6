// Package speedest estimates velocity from a ring of recent
// position/timestamp samples, returning counts per second over a
// rolling window. Algorithm grounded on
// original_source/source/TachoMotor.cpp (the `SpeedEst` ring window);
// restructured as a plain value type in the same style as
// quaddec.Decoder.
package speedest

// taps is the ring window size; fixed by spec, not configurable.
const taps = 8

// sampleIntervalUs is the minimum spacing between accepted samples.
const sampleIntervalUs = 5000

// stallUs is the gap after which update treats the caller as
// restarted rather than merely slow, and reinitializes the window.
const stallUs = 10 * taps * sampleIntervalUs

// Estimator holds the ring window. The zero value is ready to use
// (New returns a pointer to one); the first Update primes the window.
type Estimator struct {
	positionHistory [taps]int64
	tickHistory     [taps]uint32
	windowPos       int

	positionDelta int64
	timeDelta     int32

	initialized bool
}

// New returns a freshly-constructed, uninitialized Estimator. The
// first Update call primes the window.
func New() *Estimator {
	return &Estimator{}
}

// Update folds one (position, timestamp-in-microseconds) sample into
// the window.
func (e *Estimator) Update(p int64, t uint32) {
	if !e.initialized {
		e.reinit(p, t)
		return
	}

	elapsed := int32(t - e.tickHistory[e.windowPos])
	switch {
	case elapsed > stallUs:
		e.reinit(p, t)
	case elapsed >= sampleIntervalUs:
		e.windowPos = (e.windowPos + 1) % taps
		e.positionDelta = p - e.positionHistory[e.windowPos]
		e.timeDelta = int32(t - e.tickHistory[e.windowPos])
		e.positionHistory[e.windowPos] = p
		e.tickHistory[e.windowPos] = t
	default:
		// Too soon since the last accepted sample; do nothing.
	}
}

func (e *Estimator) reinit(p int64, t uint32) {
	for i := range e.positionHistory {
		e.positionHistory[i] = p
		e.tickHistory[i] = t
	}
	e.windowPos = 0
	e.positionDelta = 0
	e.timeDelta = 0
	e.initialized = true
}

// GetSpeed returns the rolling-window velocity in counts per second,
// or 0 if no full sample interval has elapsed since the last
// reinitialization.
func (e *Estimator) GetSpeed() int32 {
	if e.timeDelta == 0 {
		return 0
	}
	return int32((1_000_000 * e.positionDelta) / int64(e.timeDelta))
}
