// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads runtime selection, streams and tooling settings
// from a file and IDIOM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"code.hybscloud.com/idiom"
	"code.hybscloud.com/idiom/qos"
)

// Runtime names.
const (
	RuntimeLoopback = "loopback"
	RuntimeKafka    = "kafka"
	RuntimeRabbitMQ = "rabbitmq"
)

type Config struct {
	Runtime  string         `mapstructure:"runtime"`
	Domain   int            `mapstructure:"domain"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Loopback LoopbackConfig `mapstructure:"loopback"`
	Store    StoreConfig    `mapstructure:"store"`
	Log      LogConfig      `mapstructure:"log"`
	Streams  []Stream       `mapstructure:"streams"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	ClientID    string   `mapstructure:"client_id"`
}

type RabbitMQConfig struct {
	URL            string `mapstructure:"url"`
	ExchangePrefix string `mapstructure:"exchange_prefix"`
}

type LoopbackConfig struct {
	QueueCapacity int `mapstructure:"queue_capacity"`
}

type StoreConfig struct {
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Stream describes one session.
type Stream struct {
	Name       string `mapstructure:"name"`
	Type       string `mapstructure:"type"`
	Profile    string `mapstructure:"profile"`
	Durability string `mapstructure:"durability"`
	History    uint32 `mapstructure:"history"`
	// Qos is an optional JSON policy list applied over the derived
	// reader and writer policies. Comments are allowed.
	Qos string `mapstructure:"qos"`
}

// Load reads path, applies IDIOM_* environment overrides and validates
// the result.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("idiom")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used without a file.
func Default() Config {
	return Config{
		Runtime:  RuntimeLoopback,
		Kafka:    KafkaConfig{TopicPrefix: "idiom", ClientID: "idiom"},
		RabbitMQ: RabbitMQConfig{ExchangePrefix: "idiom"},
		Loopback: LoopbackConfig{QueueCapacity: 64},
		Store:    StoreConfig{Dir: "idiom-qos"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("runtime", d.Runtime)
	v.SetDefault("domain", d.Domain)
	v.SetDefault("kafka.topic_prefix", d.Kafka.TopicPrefix)
	v.SetDefault("kafka.client_id", d.Kafka.ClientID)
	v.SetDefault("rabbitmq.exchange_prefix", d.RabbitMQ.ExchangePrefix)
	v.SetDefault("loopback.queue_capacity", d.Loopback.QueueCapacity)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

func (c Config) Validate() error {
	if c.Domain < 0 {
		return fmt.Errorf("domain must be >= 0, got %d", c.Domain)
	}
	switch c.Runtime {
	case RuntimeLoopback:
		if c.Loopback.QueueCapacity < 1 {
			return fmt.Errorf("loopback.queue_capacity must be >= 1")
		}
	case RuntimeKafka:
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("kafka.brokers is required")
		}
	case RuntimeRabbitMQ:
		if c.RabbitMQ.URL == "" {
			return errors.New("rabbitmq.url is required")
		}
	default:
		return fmt.Errorf("unsupported runtime %q", c.Runtime)
	}
	if _, err := c.Log.ParseLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log.format %q", c.Log.Format)
	}
	seen := map[string]bool{}
	for i, s := range c.Streams {
		if _, err := s.Session(); err != nil {
			return fmt.Errorf("streams[%d]: %w", i, err)
		}
		if seen[s.Name] {
			return fmt.Errorf("streams[%d]: duplicate stream %q", i, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// ParseLevel maps log.level to a slog level.
func (l LogConfig) ParseLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("unsupported log.level %q", l.Level)
	}
	return lvl, nil
}

// Stream returns the stream named name.
func (c Config) Stream(name string) (Stream, bool) {
	for _, s := range c.Streams {
		if s.Name == name {
			return s, true
		}
	}
	return Stream{}, false
}

// Session converts s into a session configuration. Empty profile and
// durability select state and volatile.
func (s Stream) Session() (idiom.Config, error) {
	cfg := idiom.Config{Stream: s.Name, TypeName: s.Type, History: s.History}
	var err error
	if s.Profile != "" {
		if cfg.Profile, err = qos.ParseProfile(s.Profile); err != nil {
			return idiom.Config{}, err
		}
	}
	if s.Durability != "" {
		if cfg.Durability, err = qos.ParseDurabilityKind(s.Durability); err != nil {
			return idiom.Config{}, err
		}
	}
	if strings.TrimSpace(s.Qos) != "" {
		if cfg.Overrides, err = qos.DecodeJSON([]byte(s.Qos)); err != nil {
			return idiom.Config{}, fmt.Errorf("qos: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return idiom.Config{}, err
	}
	return cfg, nil
}
