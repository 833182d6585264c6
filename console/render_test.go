package console

import (
	"strings"
	"testing"

	"github.com/quadrature-io/tachomotor/tachomotor"
)

func TestRenderByteLayout(t *testing.T) {
	snap := tachomotor.Snapshot{
		Mode:            "SPEED",
		Position:        1234,
		Speed:           -56,
		TargetPosition:  1000,
		TargetSpeed:     -720,
		Duty:            -42,
		TriggerPosition: 720,
		Error:           -620,
		Sigma:           -4200,
		Delta:           100,
		PositionP:       6 * 65536,
		PositionI:       0,
		PositionD:       0,
	}

	var b strings.Builder
	if err := Render(&b, "goAt(-720)", snap); err != nil {
		t.Fatalf("Render: %v", err)
	}

	got := b.String()
	if !strings.HasPrefix(got, "\033[1;1HgoAt(-720)\033[K\r\n") {
		t.Fatalf("Render output does not start with cursor-home + echoed command:\n%q", got)
	}
	for _, label := range []string{"position:", "speed:", "error:", "mode:", "target:", "sigma:", "power:", "delta:", "tripped:", "posP:", "posI:", "posD:"} {
		if !strings.Contains(got, label) {
			t.Fatalf("Render output missing label %q:\n%q", label, got)
		}
	}
	if strings.Count(got, "\033[K") != 8 {
		t.Fatalf("Render output has %d clear-to-EOL markers, want 8 (original main.cpp format has a doubled trailing clear)", strings.Count(got, "\033[K"))
	}
	if !strings.Contains(got, "position:   1234") {
		t.Fatalf("Render output missing width-formatted position field:\n%q", got)
	}
	if !strings.Contains(got, "mode: SPEED") {
		t.Fatalf("Render output missing mode field:\n%q", got)
	}
	if !strings.Contains(got, "posP: " ) {
		t.Fatalf("Render output missing posP field:\n%q", got)
	}
}
