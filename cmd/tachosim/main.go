// Command tachosim runs N simulated tachomotors plus the operator
// console with no hardware attached, for development and the
// end-to-end scenarios in spec.md §8. Wiring style (cobra command tree,
// viper-backed config, manual construct-then-run) grounded on
// examples/tmc5160/main.go's step-numbered construction and the
// sergev-floppy/jbrzusto-ogdar pack manifests' cobra/viper usage.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/quadrature-io/tachomotor/console"
	"github.com/quadrature-io/tachomotor/hbridge"
	"github.com/quadrature-io/tachomotor/quaddec"
	"github.com/quadrature-io/tachomotor/sim"
	"github.com/quadrature-io/tachomotor/speedest"
	"github.com/quadrature-io/tachomotor/tachomotor"
	"github.com/quadrature-io/tachomotor/telemetry"
)

const simTickUs = 500

func newRootCmd() *cobra.Command {
	var motors int
	var configFile string
	var brokerURL string
	var topic string

	cmd := &cobra.Command{
		Use:   "tachosim",
		Short: "Run simulated tachomotor axes with no hardware attached",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if configFile != "" {
				v.SetConfigFile(configFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("tachosim: reading config: %w", err)
				}
			}
			v.SetDefault("speedP", 1576)
			v.SetDefault("speedI", 100)
			v.SetDefault("speedD", 0)
			v.SetDefault("positionP", 6*65536)
			v.SetDefault("positionI", 0)
			v.SetDefault("positionD", 0)

			return run(motors, v, brokerURL, topic)
		},
	}
	cmd.Flags().IntVarP(&motors, "motors", "n", 1, "number of simulated tachomotor axes to run")
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML config file for PID gains")
	cmd.Flags().StringVar(&brokerURL, "broker", "", "MQTT broker URL for telemetry publishing (disabled if empty)")
	cmd.Flags().StringVar(&topic, "telemetry-topic", "tachomotor/telemetry", "MQTT topic telemetry readings are published to")
	return cmd
}

func run(motorCount int, v *viper.Viper, brokerURL, topic string) error {
	clock := &sim.Clock{}
	type axis struct {
		motor     *tachomotor.Motor
		sim       *sim.Motor
		ticker    *sim.Ticker
		telemetry *telemetry.Publisher
	}
	axes := make([]axis, motorCount)
	reg := prometheus.NewRegistry()
	for i := range axes {
		simMotor := sim.NewMotor(clock)
		bridge := hbridge.New(simMotor.Fwd, simMotor.Rev, 0)
		decoder := quaddec.New(uint16(i+1), simMotor.PhaseA, simMotor.PhaseB, clock)
		speed := speedest.New()
		ticker := sim.NewTicker(clock)
		m := tachomotor.New(uint16(i+1), bridge, decoder, speed, ticker, clock)
		m.SpeedP = int32(v.GetInt("speedP"))
		m.SpeedI = int32(v.GetInt("speedI"))
		m.SpeedD = int32(v.GetInt("speedD"))
		m.PositionP = int32(v.GetInt("positionP"))
		m.PositionI = int32(v.GetInt("positionI"))
		m.PositionD = int32(v.GetInt("positionD"))

		var pub *telemetry.Publisher
		if brokerURL != "" {
			cfg := telemetry.Config{
				BrokerURL: brokerURL,
				ClientID:  fmt.Sprintf("tachosim-%d", i+1),
				Topic:     topic,
			}
			p, err := telemetry.NewPublisher(uint16(i+1), cfg, reg, nil)
			if err != nil {
				return fmt.Errorf("tachosim: axis %d telemetry: %w", i+1, err)
			}
			defer p.Close()
			pub = p
		}

		axes[i] = axis{motor: m, sim: simMotor, ticker: ticker, telemetry: pub}
	}

	restore, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err == nil {
		defer term.Restore(int(os.Stdin.Fd()), restore)
	}

	command := ""
	keys := make(chan byte, 16)
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := os.Stdin.Read(buf); err != nil {
				close(keys)
				return
			}
			keys <- buf[0]
		}
	}()

	focus := 0
	ticker := time.NewTicker(simTickUs * time.Microsecond)
	defer ticker.Stop()
	for range ticker.C {
		select {
		case b, ok := <-keys:
			if !ok {
				return nil
			}
			if b == 'q' {
				return nil
			}
			if b == '\t' {
				focus = (focus + 1) % len(axes)
			} else if c, handled := console.Dispatch(axes[focus].motor, b); handled {
				command = c
			}
		default:
		}

		clock.Advance(simTickUs)
		for _, a := range axes {
			a.sim.Step(simTickUs)
			a.ticker.Fire()
			if a.telemetry != nil {
				a.telemetry.Publish(a.motor.Snapshot())
			}
		}

		console.Render(os.Stdout, command, axes[focus].motor.Snapshot())
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
