package console

import (
	"fmt"
	"math"

	"github.com/google/shlex"

	"github.com/quadrature-io/tachomotor/tachomotor"
)

// preset is one of the ten single-keystroke commands from
// original_source/source/main.cpp's `case '0'`..`case '9'`.
type preset struct {
	name string
	run  func(m *tachomotor.Motor)
}

var presets = [10]preset{
	{"sleep", func(m *tachomotor.Motor) { m.Sleep() }},
	{"coast", func(m *tachomotor.Motor) { m.Coast() }},
	{"brake", func(m *tachomotor.Motor) { m.Brake() }},
	{"go(85)", func(m *tachomotor.Motor) { m.Go(85) }},
	{"goAt(-720)", func(m *tachomotor.Motor) { m.GoAt(-720) }},
	{"goAt(-1440)", func(m *tachomotor.Motor) { m.GoAt(-1440) }},
	{"goTo(0)", func(m *tachomotor.Motor) { m.GoTo(0, tachomotor.Brake) }},
	{"goTo(-720, POSITION)", func(m *tachomotor.Motor) { m.GoTo(-720, tachomotor.Position) }},
	{"goTo(0, POSITION)", func(m *tachomotor.Motor) { m.GoTo(0, tachomotor.Position) }},
	{"goTo(720, POSITION)", func(m *tachomotor.Motor) { m.GoTo(720, tachomotor.Position) }},
}

// gainStep is max(abs(gain)/32, 1), computed fresh from the current
// gain value on every keystroke so that tuning accelerates as the gain
// grows.
func gainStep(gain int32) int32 {
	if gain < 0 {
		gain = -gain
	}
	if step := gain / 32; step > 1 {
		return step
	}
	return 1
}

// Dispatch handles one single-keystroke command against m, returning
// the echoed command string for Render and whether key was recognized.
func Dispatch(m *tachomotor.Motor, key byte) (command string, handled bool) {
	switch {
	case key >= '0' && key <= '9':
		p := presets[key-'0']
		p.run(m)
		return p.name, true
	case key == 'p':
		m.PositionP += gainStep(m.PositionP)
		return "positionP++", true
	case key == 'P':
		m.PositionP -= gainStep(m.PositionP)
		return "positionP--", true
	case key == 'i':
		m.PositionI += gainStep(m.PositionI)
		return "positionI++", true
	case key == 'I':
		m.PositionI -= gainStep(m.PositionI)
		return "positionI--", true
	case key == 'd':
		m.PositionD += gainStep(m.PositionD)
		return "positionD++", true
	case key == 'D':
		m.PositionD -= gainStep(m.PositionD)
		return "positionD--", true
	default:
		return "", false
	}
}

// ExtendedCommand lexes and runs one typed command line — a
// supplement to the original's keystroke-only interface (spec.md
// names the single-key table; this extends it for scripted runs).
// None of the cmd binaries reads typed lines into it; they dispatch
// single keystrokes through Dispatch. Recognized verbs: sleep, coast,
// brake, go <duty>, goat <speed>, goto <target> [mode].
func ExtendedCommand(m *tachomotor.Motor, line string) (string, error) {
	tokens, err := shlex.Split(line)
	if err != nil {
		return "", fmt.Errorf("console: lexing %q: %w", line, err)
	}
	if len(tokens) == 0 {
		return "", fmt.Errorf("console: empty command")
	}

	switch tokens[0] {
	case "sleep":
		m.Sleep()
	case "coast":
		m.Coast()
	case "brake":
		m.Brake()
	case "go":
		var duty int8
		if err := scanInt8(tokens, 1, &duty); err != nil {
			return "", err
		}
		m.Go(duty)
	case "goat":
		var speed int32
		if err := scanInt32(tokens, 1, &speed); err != nil {
			return "", err
		}
		m.GoAt(speed)
	case "goto":
		var target int64
		if err := scanInt64(tokens, 1, &target); err != nil {
			return "", err
		}
		then := tachomotor.Brake
		if len(tokens) > 2 {
			mode, ok := modeByName(tokens[2])
			if !ok {
				return "", fmt.Errorf("console: unknown mode %q", tokens[2])
			}
			then = mode
		}
		m.GoTo(target, then)
	default:
		return "", fmt.Errorf("console: unknown command %q", tokens[0])
	}
	return line, nil
}

func modeByName(name string) (tachomotor.Mode, bool) {
	switch name {
	case "sleep", "SLEEP":
		return tachomotor.Sleep, true
	case "coast", "COAST":
		return tachomotor.Coast, true
	case "brake", "BRAKE":
		return tachomotor.Brake, true
	case "power", "POWER":
		return tachomotor.Power, true
	case "speed", "SPEED":
		return tachomotor.Speed, true
	case "track", "TRACK":
		return tachomotor.Track, true
	case "position", "POSITION":
		return tachomotor.Position, true
	default:
		return 0, false
	}
}

func scanInt8(tokens []string, i int, out *int8) error {
	var v int64
	if err := scanInt64(tokens, i, &v); err != nil {
		return err
	}
	if v < math.MinInt8 || v > math.MaxInt8 {
		return fmt.Errorf("console: %q out of int8 range", tokens[i])
	}
	*out = int8(v)
	return nil
}

func scanInt32(tokens []string, i int, out *int32) error {
	var v int64
	if err := scanInt64(tokens, i, &v); err != nil {
		return err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return fmt.Errorf("console: %q out of int32 range", tokens[i])
	}
	*out = int32(v)
	return nil
}

func scanInt64(tokens []string, i int, out *int64) error {
	if i >= len(tokens) {
		return fmt.Errorf("console: missing argument")
	}
	_, err := fmt.Sscanf(tokens[i], "%d", out)
	if err != nil {
		return fmt.Errorf("console: parsing %q: %w", tokens[i], err)
	}
	return nil
}
