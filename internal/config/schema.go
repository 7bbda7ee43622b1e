// Package config loads and validates ilosentinel's configuration, layered
// as a YAML file with environment variable overrides.
package config

import (
	"time"

	"github.com/ilofleet/sentinel/internal/ipaddr"
)

// SchemaVersion is the configuration schema version.
const SchemaVersion = "1"

// Config is the root of config.yaml.
type Config struct {
	Version string        `yaml:"version"`
	System  SystemConfig  `yaml:"system"`
	ILO     ILOConfig     `yaml:"ilo"`
	Client  ClientConfig  `yaml:"client"`
	Log     LogConfig     `yaml:"log"`
	KVStore KVStoreConfig `yaml:"kvstore"`
	Queue   QueueConfig   `yaml:"queue"`
}

// SystemConfig holds the system.* keys.
type SystemConfig struct {
	// ObfuscateSecrets is system.obfuscate-secrets. It is loaded and
	// carried in config only: no component in this module reads it, and
	// nothing here passes credentials through internal/secretobfuscator.
	ObfuscateSecrets bool `yaml:"obfuscate_secrets" env:"ILOSENTINEL_SYSTEM_OBFUSCATE_SECRETS"`
	// AllowedIP is an optional allowlist for the admin surface. Spec §6
	// notes this is "not part of core" — no component in this module
	// consumes it; it is carried through config only so an admin HTTP
	// surface built later has somewhere to read it from.
	AllowedIP string `yaml:"allowed_ip,omitempty" env:"ILOSENTINEL_SYSTEM_ALLOWED_IP"`
}

// ILOConfig holds the ilo.* keys.
type ILOConfig struct {
	Username string `yaml:"username" env:"ILOSENTINEL_ILO_USERNAME"`
	Password string `yaml:"password" env:"ILOSENTINEL_ILO_PASSWORD"`

	// ClientTimeoutConnectMs / ClientTimeoutReadMs are literal
	// int-millisecond keys rather than time.Duration, so a YAML file can
	// write a plain `2000` the way an operator would expect
	// from the spec's documented defaults.
	ClientTimeoutConnectMs int `yaml:"client_timeout_connect_ms" env:"ILOSENTINEL_ILO_CLIENT_TIMEOUT_CONNECT_MS"`
	ClientTimeoutReadMs    int `yaml:"client_timeout_read_ms" env:"ILOSENTINEL_ILO_CLIENT_TIMEOUT_READ_MS"`

	Network NetworkConfig `yaml:"network"`
}

// ConnectTimeout returns the configured connect timeout as a Duration.
func (c ILOConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ClientTimeoutConnectMs) * time.Millisecond
}

// ReadTimeout returns the configured read timeout as a Duration.
func (c ILOConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ClientTimeoutReadMs) * time.Millisecond
}

// NetworkConfig holds ilo.network.*: the address range to scan.
type NetworkConfig struct {
	BaseIP     ipaddr.IPv4Address `yaml:"base_ip" env:"ILOSENTINEL_ILO_NETWORK_BASE_IP"`
	SubnetMask ipaddr.SubnetMask  `yaml:"subnet_mask" env:"ILOSENTINEL_ILO_NETWORK_SUBNET_MASK"`
}

// ClientConfig holds client.* keys.
type ClientConfig struct {
	ResponsivenessThresholdMs int `yaml:"responsiveness_threshold_ms" env:"ILOSENTINEL_CLIENT_RESPONSIVENESS_THRESHOLD_MS"`
}

// ResponsivenessThreshold returns the configured threshold as a
// Duration.
func (c ClientConfig) ResponsivenessThreshold() time.Duration {
	return time.Duration(c.ResponsivenessThresholdMs) * time.Millisecond
}

// LogConfig configures internal/logging.
type LogConfig struct {
	Level  string `yaml:"level" env:"ILOSENTINEL_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"ILOSENTINEL_LOG_PRETTY"`
}

// KVStoreConfig configures internal/kvstore/redisstore.
type KVStoreConfig struct {
	RedisAddr string `yaml:"redis_addr" env:"ILOSENTINEL_KVSTORE_REDIS_ADDR"`
}

// QueueConfig configures internal/queue/amqp091.
type QueueConfig struct {
	AMQPURL string `yaml:"amqp_url" env:"ILOSENTINEL_QUEUE_AMQP_URL"`
	// GzipFraming selects the producer-side framing: true gzip-frames
	// every published body.
	GzipFraming bool `yaml:"gzip_framing" env:"ILOSENTINEL_QUEUE_GZIP_FRAMING"`
}
