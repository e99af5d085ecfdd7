// Package settings loads host settings for the shplug command.
package settings

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/ghodss/yaml"
	"github.com/ppacher/shplug/pkg/plugin"
)

// DefaultPath is the settings file read when no other path is given
const DefaultPath = "/etc/shplug.yaml"

// EnvPrefix is prepended to all environment variable names
const EnvPrefix = "SHPLUG_"

// MQTT configures the MQTT diagnostic sink. The sink is disabled if Broker
// is empty
type MQTT struct {
	Broker   string `json:"broker" env:"BROKER"`
	ClientID string `json:"client_id" env:"CLIENT_ID"`
	Topic    string `json:"topic" env:"TOPIC"`
}

// Settings holds the host configuration
type Settings struct {
	// PluginConfig is the line oriented plugin configuration file
	PluginConfig string `json:"plugin_config" env:"PLUGIN_CONFIG"`

	LogLevel  string `json:"log_level" env:"LOG_LEVEL"`
	LogFormat string `json:"log_format" env:"LOG_FORMAT"`

	// StrictInit rejects modules whose plugin_init does not return 0
	StrictInit bool `json:"strict_init" env:"STRICT_INIT"`

	// LevelVariable names the environment variable holding the shell
	// nesting level
	LevelVariable string `json:"level_variable" env:"LEVEL_VARIABLE"`

	// MetricsTextfile is written in the prometheus text format on exit if set
	MetricsTextfile string `json:"metrics_textfile" env:"METRICS_TEXTFILE"`

	MQTT MQTT `json:"mqtt" envPrefix:"MQTT_"`
}

// Default returns the built-in defaults
func Default() *Settings {
	return &Settings{
		PluginConfig:  plugin.DefaultConfigPath,
		LogLevel:      "warning",
		LogFormat:     "text",
		LevelVariable: plugin.DefaultLevelVariable,
		MQTT: MQTT{
			ClientID: "shplug",
			Topic:    "shplug/events",
		},
	}
}

// Load reads the YAML settings file at path and applies environment
// overrides afterwards. A missing file is not an error
func Load(path string) (*Settings, error) {
	s := Default()

	content, err := ioutil.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(content, s); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if err := env.ParseWithOptions(s, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return s, nil
}
