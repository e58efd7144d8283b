package publisher

import (
	"net"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"codeberg.org/mutker/ipmifanctl/internal/errors"
	"codeberg.org/mutker/ipmifanctl/internal/logger"
)

const (
	defaultPort            = "1883"
	defaultClientID        = "ipmifanctl"
	defaultTopicPrefix     = "ipmifanctl"
	defaultDiscoveryPrefix = "homeassistant"
	defaultTimeout         = 5 * time.Second
)

type Config struct {
	Broker          string
	Username        string
	Password        string
	ClientID        string
	TopicPrefix     string
	Discovery       bool
	DiscoveryPrefix string
	Timeout         time.Duration
}

func DefaultConfig() Config {
	return Config{
		ClientID:        defaultClientID,
		TopicPrefix:     defaultTopicPrefix,
		Discovery:       true,
		DiscoveryPrefix: defaultDiscoveryPrefix,
		Timeout:         defaultTimeout,
	}
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool {
	return c.Broker != ""
}

func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}

	errFactory := errors.New()
	if c.ClientID == "" {
		return errFactory.WithData(ErrInvalidConfig, "mqtt.client_id must not be empty")
	}
	if c.TopicPrefix == "" || strings.ContainsAny(c.TopicPrefix, "#+") {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value string
		}{
			Field: "mqtt.topic_prefix",
			Value: c.TopicPrefix,
		})
	}
	if c.Timeout <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "mqtt timeout must be positive")
	}
	return nil
}

// BrokerURL normalizes Broker to a scheme://host:port URL.
func (c Config) BrokerURL() string {
	broker := c.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	scheme, hostport, _ := strings.Cut(broker, "://")
	if _, _, err := net.SplitHostPort(hostport); err != nil {
		hostport = net.JoinHostPort(hostport, defaultPort)
	}

	return scheme + "://" + hostport
}

func (c Config) stateTopic() string {
	return c.TopicPrefix + "/state"
}

func (c Config) availabilityTopic() string {
	return c.TopicPrefix + "/status"
}

// ClientOptions builds paho options with automatic reconnects. onConnect
// runs after every (re)connect.
func (c Config) ClientOptions(log logger.Logger, onConnect mqtt.OnConnectHandler) *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(c.BrokerURL()).
		SetClientID(c.ClientID).
		SetUsername(c.Username).
		SetPassword(c.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetWill(c.availabilityTopic(), payloadOffline, 0, true).
		SetOnConnectHandler(onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Msg("MQTT connection lost")
		}).
		SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
			log.Debug().Msg("MQTT reconnecting")
		})
}
