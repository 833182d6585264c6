//go:build tinygo

// Command tachofw is the embedded firmware entry point: the direct
// analogue of original_source/source/main.cpp, wiring one axis
// (decoded by the software quaddec package) to its H-bridge and the
// serial console. No hardware-decoder axis is wired.
package main

import (
	"machine"
	"time"

	"github.com/quadrature-io/tachomotor/console"
	"github.com/quadrature-io/tachomotor/hbridge"
	"github.com/quadrature-io/tachomotor/machinehal"
	"github.com/quadrature-io/tachomotor/quaddec"
	"github.com/quadrature-io/tachomotor/speedest"
	"github.com/quadrature-io/tachomotor/tachomotor"
)

func main() {
	serial := machine.Serial
	serial.Configure(machine.UARTConfig{BaudRate: 115200})

	// Lego motors have series resistors on their quadrature output,
	// apparently used for part identification via ADC. NewEdgeSource
	// and NewLevelPin configure the encoder pins as inputs with no pull
	// so we're not fighting that output.
	phaseA := machine.GPIO2
	phaseB := machine.GPIO8
	fwdPin := machine.GPIO13
	revPin := machine.GPIO14

	edgeSrc := machinehal.NewEdgeSource(phaseA)
	levelB := machinehal.NewLevelPin(phaseB)
	fwd := machinehal.NewPin(fwdPin)
	rev := machinehal.NewPin(revPin)
	clock := machinehal.Clock{}
	ticker := machinehal.NewTicker(machine.Timer)

	bridge := hbridge.New(fwd, rev, 0)
	decoder := quaddec.New(12345, edgeSrc, levelB, clock)
	speed := speedest.New()
	motor := tachomotor.New(12345, bridge, decoder, speed, ticker, clock)

	command := ""
	for {
		for serial.Buffered() > 0 {
			b, err := serial.ReadByte()
			if err != nil {
				break
			}
			if c, ok := console.Dispatch(motor, b); ok {
				command = c
			}
		}

		console.Render(serial, command, motor.Snapshot())
		time.Sleep(49 * time.Millisecond)
	}
}
