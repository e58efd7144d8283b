package publisher

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"codeberg.org/mutker/ipmifanctl/internal/control"
	"codeberg.org/mutker/ipmifanctl/internal/errors"
	"codeberg.org/mutker/ipmifanctl/internal/logger"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"

	disconnectQuiesce = 250 // milliseconds
)

// Collector forwards cycle outcomes to an MQTT broker.
type Collector interface {
	control.Recorder
	Close() error
}

type statePayload struct {
	Cycle       string   `json:"cycle"`
	Timestamp   string   `json:"timestamp"`
	Host        string   `json:"host"`
	Temperature *float64 `json:"temperature"`
	Duty        *uint8   `json:"duty"`
	Action      string   `json:"action"`
	Error       string   `json:"error,omitempty"`
}

type publisher struct {
	client mqtt.Client
	cfg    Config
	logger logger.Logger
}

// No-op implementation
type noopCollector struct{}

// New connects to the configured broker. Without a broker it returns a
// no-op collector. An unreachable broker is not fatal: the client keeps
// retrying and queues publishes until it connects.
func New(cfg Config, log logger.Logger) (Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.Enabled() {
		log.Debug().Msg("MQTT publisher disabled, using no-op collector")
		return &noopCollector{}, nil
	}

	p := &publisher{cfg: cfg, logger: log}
	p.client = mqtt.NewClient(cfg.ClientOptions(log, p.onConnect))

	if t := p.client.Connect(); !t.WaitTimeout(cfg.Timeout) {
		log.Warn().
			Str("broker", cfg.BrokerURL()).
			Msg("MQTT broker not reachable yet, retrying in background")
	} else if t.Error() != nil {
		return nil, errors.New().Wrap(ErrPublishFailed, t.Error())
	}

	log.Info().
		Str("broker", cfg.BrokerURL()).
		Str("topic", cfg.stateTopic()).
		Bool("discovery", cfg.Discovery).
		Msg("MQTT publisher initialized")

	return p, nil
}

func (p *publisher) onConnect(client mqtt.Client) {
	p.logger.Debug().Str("broker", p.cfg.BrokerURL()).Msg("MQTT connected")

	if err := p.announce(client); err != nil {
		p.logger.Warn().Err(err).Msg("MQTT announce failed")
	}
}

// announce publishes availability and, if enabled, discovery documents.
func (p *publisher) announce(client mqtt.Client) error {
	if err := p.publish(client, p.cfg.availabilityTopic(), true, payloadOnline); err != nil {
		return err
	}

	if !p.cfg.Discovery {
		return nil
	}

	messages, err := p.cfg.discoveryMessages()
	if err != nil {
		return errors.New().Wrap(ErrPublishFailed, err)
	}
	for _, m := range messages {
		if err := p.publish(client, m.topic, true, m.payload); err != nil {
			return err
		}
	}

	return nil
}

func (p *publisher) Record(_ context.Context, outcome *control.Outcome) error {
	if outcome == nil {
		return errors.New().New(ErrInvalidOutcome)
	}

	payload, err := json.Marshal(newStatePayload(outcome))
	if err != nil {
		return errors.New().Wrap(ErrPublishFailed, err)
	}

	return p.publish(p.client, p.cfg.stateTopic(), true, payload)
}

func (p *publisher) publish(client mqtt.Client, topic string, retained bool, payload any) error {
	errFactory := errors.New()

	t := client.Publish(topic, 0, retained, payload)
	if !t.WaitTimeout(p.cfg.Timeout) {
		return errFactory.WithData(ErrPublishTimeout, struct {
			Topic string
		}{
			Topic: topic,
		})
	}
	if t.Error() != nil {
		return errFactory.Wrap(ErrPublishFailed, t.Error())
	}

	return nil
}

func (p *publisher) Close() error {
	if p.client.IsConnectionOpen() {
		if err := p.publish(p.client, p.cfg.availabilityTopic(), true, payloadOffline); err != nil {
			p.logger.Debug().Err(err).Msg("Failed to publish offline status")
		}
	}
	p.client.Disconnect(disconnectQuiesce)
	p.logger.Info().Msg("MQTT publisher closed")

	return nil
}

func newStatePayload(o *control.Outcome) statePayload {
	state := statePayload{
		Cycle:     o.ID,
		Timestamp: o.Started.UTC().Format(time.RFC3339),
		Host:      o.Address,
		Action:    string(o.Action),
	}

	if o.HasTemperature {
		temp := o.Temperature
		state.Temperature = &temp
	}
	if o.HasDuty {
		duty := uint8(o.Duty)
		state.Duty = &duty
	}
	if o.Err != nil {
		state.Error = o.Err.Error()
	}

	return state
}

func (*noopCollector) Record(_ context.Context, _ *control.Outcome) error {
	return nil
}

func (*noopCollector) Close() error {
	return nil
}
