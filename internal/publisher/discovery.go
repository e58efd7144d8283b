package publisher

import (
	"encoding/json"
	"fmt"
)

type deviceConfiguration struct {
	Identifiers []string `json:"identifiers"`
	Name        string   `json:"name"`
	Model       string   `json:"model"`
}

type sensorConfiguration struct {
	UniqueId          string              `json:"unique_id"`
	Name              string              `json:"name"`
	DeviceClass       string              `json:"device_class,omitempty"`
	StateClass        string              `json:"state_class,omitempty"`
	StateTopic        string              `json:"state_topic"`
	ValueTemplate     string              `json:"value_template"`
	UnitOfMeasurement string              `json:"unit_of_measurement,omitempty"`
	AvailabilityTopic string              `json:"availability_topic"`
	Device            deviceConfiguration `json:"device"`
}

type discoveryMessage struct {
	topic   string
	payload []byte
}

var sensorDefinitions = []struct {
	key   string
	name  string
	class string
	unit  string
}{
	{key: "temperature", name: "Temperature", class: "temperature", unit: "°C"},
	{key: "duty", name: "Fan duty", unit: "%"},
	{key: "action", name: "Last action"},
}

// discoveryMessages returns the retained Home Assistant config documents
// describing the state topic.
func (c Config) discoveryMessages() ([]discoveryMessage, error) {
	device := deviceConfiguration{
		Identifiers: []string{c.ClientID},
		Name:        c.ClientID,
		Model:       "IPMI fan controller",
	}

	messages := make([]discoveryMessage, 0, len(sensorDefinitions))
	for _, def := range sensorDefinitions {
		uniqueId := c.ClientID + "_" + def.key

		sensor := sensorConfiguration{
			UniqueId:          uniqueId,
			Name:              def.name,
			DeviceClass:       def.class,
			StateTopic:        c.stateTopic(),
			ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", def.key),
			UnitOfMeasurement: def.unit,
			AvailabilityTopic: c.availabilityTopic(),
			Device:            device,
		}
		if def.unit != "" {
			sensor.StateClass = "measurement"
		}

		payload, err := json.Marshal(sensor)
		if err != nil {
			return nil, err
		}

		messages = append(messages, discoveryMessage{
			topic:   fmt.Sprintf("%v/sensor/%v/config", c.DiscoveryPrefix, uniqueId),
			payload: payload,
		})
	}

	return messages, nil
}
