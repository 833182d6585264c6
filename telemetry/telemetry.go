// Package telemetry publishes a tachomotor.Snapshot to an MQTT broker
// and exposes it as Prometheus gauges. This is the observability
// layer a production motor-control daemon carries even though
// spec.md names no metrics surface — see SPEC_FULL.md §3. Construction
// style (a logger threaded through a transport object, returned to the
// caller) grounded on netlink/probe/cyw43439.go's Probe().
package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quadrature-io/tachomotor/tachomotor"
)

// Reading is the JSON wire shape published to MQTT, one message per
// console refresh tick.
type Reading struct {
	MotorID         uint16 `json:"motor_id"`
	Mode            string `json:"mode"`
	Position        int64  `json:"position"`
	Speed           int32  `json:"speed_cps"`
	TargetPosition  int64  `json:"target_position"`
	TargetSpeed     int32  `json:"target_speed_cps"`
	Duty            int8   `json:"duty_percent"`
	TriggerPosition int64  `json:"trigger_position"`
	Error           int32  `json:"pid_error"`
}

// Publisher fans a Snapshot out to MQTT and Prometheus.
type Publisher struct {
	motorID uint16
	client  mqtt.Client
	topic   string
	logger  *slog.Logger

	position prometheus.Gauge
	speed    prometheus.Gauge
	duty     prometheus.Gauge
	pidError prometheus.Gauge
}

// Config selects the MQTT broker and topic a Publisher connects to.
type Config struct {
	BrokerURL string
	ClientID  string
	Topic     string
}

func newGauges(motorID uint16) (position, speed, duty, pidError prometheus.Gauge) {
	labels := prometheus.Labels{"motor_id": fmt.Sprintf("%d", motorID)}
	position = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "tachomotor_position",
		Help:        "Decoder position in encoder counts.",
		ConstLabels: labels,
	})
	speed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "tachomotor_speed_cps",
		Help:        "Estimated velocity in counts per second.",
		ConstLabels: labels,
	})
	duty = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "tachomotor_duty_percent",
		Help:        "Applied H-bridge duty, percent.",
		ConstLabels: labels,
	})
	pidError = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "tachomotor_pid_error",
		Help:        "Current PID error term.",
		ConstLabels: labels,
	})
	return position, speed, duty, pidError
}

// NewPublisher connects to cfg.BrokerURL and registers the
// per-motor Prometheus gauges against reg. logger receives connection
// lifecycle events; nil selects slog.Default().
func NewPublisher(motorID uint16, cfg Config, reg prometheus.Registerer, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	position, speed, duty, pidError := newGauges(motorID)
	p := &Publisher{
		motorID:  motorID,
		topic:    cfg.Topic,
		logger:   logger,
		position: position,
		speed:    speed,
		duty:     duty,
		pidError: pidError,
	}
	for _, g := range []prometheus.Gauge{p.position, p.speed, p.duty, p.pidError} {
		if err := reg.Register(g); err != nil {
			return nil, fmt.Errorf("telemetry: registering gauge: %w", err)
		}
	}

	opts := mqtt.NewClientOptions().AddBroker(cfg.BrokerURL).SetClientID(cfg.ClientID).SetConnectTimeout(5 * time.Second)
	p.client = mqtt.NewClient(opts)
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: connecting to %s: %w", cfg.BrokerURL, token.Error())
	}
	logger.Info("telemetry connected", "broker", cfg.BrokerURL, "topic", cfg.Topic, "motor_id", motorID)
	return p, nil
}

// Publish pushes one Snapshot to both the MQTT topic and the
// Prometheus gauges. MQTT publish failures are logged, not returned —
// telemetry is best-effort and must never perturb the caller's control
// loop.
func (p *Publisher) Publish(snap tachomotor.Snapshot) {
	p.position.Set(float64(snap.Position))
	p.speed.Set(float64(snap.Speed))
	p.duty.Set(float64(snap.Duty))
	p.pidError.Set(float64(snap.Error))

	reading := Reading{
		MotorID:         p.motorID,
		Mode:            snap.Mode,
		Position:        snap.Position,
		Speed:           snap.Speed,
		TargetPosition:  snap.TargetPosition,
		TargetSpeed:     snap.TargetSpeed,
		Duty:            snap.Duty,
		TriggerPosition: snap.TriggerPosition,
		Error:           snap.Error,
	}
	payload, err := json.Marshal(reading)
	if err != nil {
		p.logger.Error("telemetry: marshaling reading", "err", err)
		return
	}
	token := p.client.Publish(p.topic, 0, false, payload)
	if !token.WaitTimeout(time.Second) {
		p.logger.Warn("telemetry: publish timed out", "topic", p.topic)
	} else if token.Error() != nil {
		p.logger.Warn("telemetry: publish failed", "err", token.Error())
	}
}

// Close disconnects the MQTT client.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
