package config

// Configuration keys. Nested keys map to IPMIFANCTL_<SECTION>_<KEY> in the
// environment.
const (
	keyAddress   = "address"
	keyUsername  = "username"
	keyPassword  = "password"
	keyToolPath  = "tool_path"
	keyInterface = "interface"
	keySensor    = "sensor"
	keyInterval  = "interval"
	keyLogLevel  = "log_level"
	keyLogFile   = "log_file"
	keyHeadless  = "headless"
	keyPIDFile   = "pid_file"
	keyBands     = "bands"

	keyMetricsEnabled      = "metrics.enabled"
	keyMetricsDBPath       = "metrics.db_path"
	keyMetricsBatchSize    = "metrics.batch_size"
	keyMetricsBatchTimeout = "metrics.batch_timeout"

	keyTelemetryEnabled  = "telemetry.enabled"
	keyTelemetryTextfile = "telemetry.textfile"

	keyMQTTBroker          = "mqtt.broker"
	keyMQTTUsername        = "mqtt.username"
	keyMQTTPassword        = "mqtt.password"
	keyMQTTClientID        = "mqtt.client_id"
	keyMQTTTopicPrefix     = "mqtt.topic_prefix"
	keyMQTTDiscovery       = "mqtt.discovery"
	keyMQTTDiscoveryPrefix = "mqtt.discovery_prefix"
)

const (
	envPrefix     = "IPMIFANCTL"
	envConfigFile = envPrefix + "_CONFIG"
	configName    = "ipmifanctl"
	flagConfig    = "config"
)

// flagKeys binds command-line flags to configuration keys.
var flagKeys = map[string]string{
	"address":            keyAddress,
	"username":           keyUsername,
	"password":           keyPassword,
	"tool-path":          keyToolPath,
	"interface":          keyInterface,
	"sensor":             keySensor,
	"interval":           keyInterval,
	"log-level":          keyLogLevel,
	"log-file":           keyLogFile,
	"headless":           keyHeadless,
	"pid-file":           keyPIDFile,
	"metrics":            keyMetricsEnabled,
	"metrics-db":         keyMetricsDBPath,
	"telemetry":          keyTelemetryEnabled,
	"telemetry-textfile": keyTelemetryTextfile,
	"mqtt-broker":        keyMQTTBroker,
}
