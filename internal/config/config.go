// Package config loads the proxy's YAML configuration with viper,
// following the same load-then-unmarshal pattern the teacher uses for
// its own config file.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the root configuration document.
type Config struct {
	Gen3Plus   Gen3PlusConfig   `mapstructure:"gen3plus"`
	Gen3       Gen3Config       `mapstructure:"gen3"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	LogLevel   string           `mapstructure:"log_level"`
}

// Gen3PlusConfig configures the Solarman V5 listener and its paired
// outbound connection to the TSUN cloud.
type Gen3PlusConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	CloudAddr  string `mapstructure:"cloud_addr"`
}

// Gen3Config configures the legacy Gen3 listener. Its actual framing is
// out of scope; this only carries enough to stand the listener up.
type Gen3Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	CloudAddr  string `mapstructure:"cloud_addr"`
}

// MQTTConfig configures the outbound MQTT publisher.
type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	TopicRoot string `mapstructure:"topic_root"`
	HomeAssistantDiscovery bool `mapstructure:"ha_discovery"`
}

// HTTPConfig configures the admin/health HTTP surface.
type HTTPConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Default returns the configuration the proxy ships with before any
// file or flag overrides are applied.
func Default() Config {
	return Config{
		Gen3Plus: Gen3PlusConfig{
			ListenAddr: ":10000",
			CloudAddr:  "iot.talent-monitoring.com:10000",
		},
		Gen3: Gen3Config{
			ListenAddr: ":5005",
			CloudAddr:  "logger.talent-monitoring.com:5005",
		},
		MQTT: MQTTConfig{
			Broker:    "tcp://localhost:1883",
			ClientID:  "tsunproxy",
			TopicRoot: "tsun-gen3plus",
		},
		HTTP: HTTPConfig{
			ListenAddr: ":8127",
		},
		LogLevel: "info",
	}
}

// Load reads path (if non-empty) via viper, overlaying it on Default,
// and returns the merged configuration.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	v.SetDefault("gen3plus", cfg.Gen3Plus)
	v.SetDefault("gen3", cfg.Gen3)
	v.SetDefault("mqtt", cfg.MQTT)
	v.SetDefault("http", cfg.HTTP)
	v.SetDefault("log_level", cfg.LogLevel)

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshalling: %w", err)
	}
	return cfg, nil
}
