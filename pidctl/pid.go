// Package pidctl implements the fixed-point PID controller core:
// error/integral/derivative accumulation with a deadband and a
// saturated Q16.16 fixed-point output. Algorithm grounded on
// original_source/source/TachoMotor.cpp (PIDState::update/output);
// the generic saturation helper follows the
// constrain[T constraints.Ordered] idiom in tmc5160/helpers.go.
package pidctl

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Hysteresis is the deadband (in error units) within which error is
// forced to zero, suppressing integrator windup from sensor noise.
const Hysteresis = 3

// State holds the running PID accumulators. The zero value is a
// freshly-reset controller.
type State struct {
	Error int32
	Sigma int64
	Delta int32
}

// Reset zeros all three accumulators. Gains are not part of State and
// are unaffected.
func (s *State) Reset() {
	s.Error = 0
	s.Sigma = 0
	s.Delta = 0
}

// Update folds one new (target, current) sample into the controller:
// error is recomputed, clamped to zero inside the hysteresis deadband,
// accumulated into Sigma, and Delta records the step-to-step change.
func (s *State) Update(target, current int64) {
	oldError := s.Error
	e := target - current
	if e > -Hysteresis && e < Hysteresis {
		e = 0
	}
	s.Error = int32(e)
	s.Sigma += int64(s.Error)
	s.Delta = s.Error - oldError
}

// Output computes (p*error + i*sigma + d*delta) >> 16 in 64-bit,
// saturated to the int32 range. Gains are Q16.16 fixed-point.
func (s *State) Output(p, i, d int32) int32 {
	sum := int64(p) * int64(s.Error)
	sum += int64(i) * s.Sigma
	sum += int64(d) * int64(s.Delta)
	sum >>= 16
	return saturate32(sum)
}

func saturate32(v int64) int32 {
	return int32(constrain(v, int64(math.MinInt32), int64(math.MaxInt32)))
}

func constrain[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
