package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Zone      ZoneConfig      `toml:"zone"`
	Presence  PresenceConfig  `toml:"presence"`
	Messages  MessagesConfig  `toml:"messages"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	BindAddress      string `toml:"bind_address"`
	WriteTimeoutSecs int    `toml:"write_timeout_secs"`
	PongTimeoutSecs  int    `toml:"pong_timeout_secs"`
	OutQueueSize     int    `toml:"out_queue_size"` // buffered events per connection
}

func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSecs) * time.Second
}

func (c ServerConfig) PongTimeout() time.Duration {
	return time.Duration(c.PongTimeoutSecs) * time.Second
}

type ZoneConfig struct {
	Precision int `toml:"precision"` // geohash precision, 5-7 is the useful range
}

type PresenceConfig struct {
	StaleTimeoutSecs  int `toml:"stale_timeout_secs"`  // evict sessions silent longer than this
	SweepIntervalSecs int `toml:"sweep_interval_secs"` // eviction scan cadence
}

func (c PresenceConfig) StaleTimeout() time.Duration {
	return time.Duration(c.StaleTimeoutSecs) * time.Second
}

func (c PresenceConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSecs) * time.Second
}

type MessagesConfig struct {
	SpeedLimitMPH  float64  `toml:"speed_limit_mph"` // no sending above this speed
	ShortFilterLen int      `toml:"short_filter_len"` // texts at or under this length skip filtering
	MaxMessageSize int      `toml:"max_message_size"` // bytes, longer inbound text is truncated
	HistoryLimit   int      `toml:"history_limit"`    // messages kept per zone
	HistoryTTLSecs int      `toml:"history_ttl_secs"` // zone history expiry
	FilteredWords  []string `toml:"filtered_words"`   // default profanity list
}

func (c MessagesConfig) HistoryTTL() time.Duration {
	return time.Duration(c.HistoryTTLSecs) * time.Second
}

type RateLimitConfig struct {
	EventsPerSecond float64 `toml:"events_per_second"` // inbound events per connection
	Burst           int     `toml:"burst"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddress:      "0.0.0.0:9090",
			WriteTimeoutSecs: 10,
			PongTimeoutSecs:  60,
			OutQueueSize:     64,
		},
		Zone: ZoneConfig{
			Precision: 6, // ~1.2km x 0.6km cells
		},
		Presence: PresenceConfig{
			StaleTimeoutSecs:  30,
			SweepIntervalSecs: 5,
		},
		Messages: MessagesConfig{
			SpeedLimitMPH:  10,
			ShortFilterLen: 5,
			MaxMessageSize: 512,
			HistoryLimit:   50,
			HistoryTTLSecs: 3600,
			FilteredWords:  []string{"damn", "hell", "crap"},
		},
		RateLimit: RateLimitConfig{
			EventsPerSecond: 5,
			Burst:           10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
