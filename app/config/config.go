// Package config extends the core configuration with the release bot's
// storage, registry and delivery settings.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	coreconfig "github.com/m3rciful/releasebot/core/config"
	coredatabase "github.com/m3rciful/releasebot/core/database"
	"github.com/m3rciful/releasebot/core/telegram/sender"
)

const (
	// RegistryMemory keeps conversations in process memory.
	RegistryMemory = "memory"
	// RegistryRedis keeps conversations in Redis so restarts do not lose them.
	RegistryRedis = "redis"

	defaultRegistryTTL     = 24 * time.Hour
	defaultBroadcastPaceMS = 50
	defaultInboundQueue    = 16
	defaultInboundIdleMS   = 60_000
)

// RedisConfig points at the Redis server used by the redis registry backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// RegistryConfig selects where conversation state lives.
type RegistryConfig struct {
	Backend string `yaml:"backend" envconfig:"REGISTRY_BACKEND"`
	// TTL expires idle redis entries; the memory backend keeps entries until they end.
	TTL time.Duration `yaml:"ttl" envconfig:"REGISTRY_TTL"`
}

// BroadcastConfig tunes release fan-out.
type BroadcastConfig struct {
	PaceMS int `yaml:"pace_ms" envconfig:"BROADCAST_PACE_MS"`
}

// Pace returns the delay between two broadcast sends.
func (b BroadcastConfig) Pace() time.Duration {
	return time.Duration(b.PaceMS) * time.Millisecond
}

// InboundConfig sizes the per-sender lanes events are queued on.
type InboundConfig struct {
	QueueSize     int `yaml:"queue_size" envconfig:"INBOUND_QUEUE_SIZE"`
	IdleTimeoutMS int `yaml:"idle_timeout_ms" envconfig:"INBOUND_IDLE_TIMEOUT_MS"`
	MaxActive     int `yaml:"max_active" envconfig:"INBOUND_MAX_ACTIVE"`
}

// IdleTimeout returns the lane retirement delay.
func (i InboundConfig) IdleTimeout() time.Duration {
	return time.Duration(i.IdleTimeoutMS) * time.Millisecond
}

// AppConfig is the full configuration of the release bot.
type AppConfig struct {
	coreconfig.Config `yaml:",inline"`

	Database  coredatabase.Config `yaml:"database"`
	Redis     RedisConfig         `yaml:"redis"`
	Registry  RegistryConfig      `yaml:"registry"`
	Broadcast BroadcastConfig     `yaml:"broadcast"`
	Inbound   InboundConfig       `yaml:"inbound"`
	Sender    sender.Options      `yaml:"sender"`
}

// CoreConfig exposes the embedded core configuration.
func (c *AppConfig) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path (YAML, optional) and the environment, then validates.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *AppConfig) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}

	if strings.TrimSpace(c.Webhook.SecretToken) == "" {
		// Telegram accepts [A-Za-z0-9_-]; a dashless uuid fits.
		c.Webhook.SecretToken = strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	backend := strings.ToLower(strings.TrimSpace(c.Registry.Backend))
	if backend == "" {
		backend = RegistryMemory
	}
	switch backend {
	case RegistryMemory:
	case RegistryRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("redis.addr is required when registry.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid registry.backend %q; allowed: memory, redis", c.Registry.Backend)
	}
	c.Registry.Backend = backend
	if c.Registry.TTL < 0 {
		return fmt.Errorf("registry.ttl must be >= 0")
	}
	if c.Registry.TTL == 0 {
		c.Registry.TTL = defaultRegistryTTL
	}

	if c.Broadcast.PaceMS < 0 {
		return fmt.Errorf("broadcast.pace_ms must be >= 0")
	}
	if c.Broadcast.PaceMS == 0 {
		c.Broadcast.PaceMS = defaultBroadcastPaceMS
	}

	if c.Inbound.QueueSize <= 0 {
		c.Inbound.QueueSize = defaultInboundQueue
	}
	if c.Inbound.IdleTimeoutMS <= 0 {
		c.Inbound.IdleTimeoutMS = defaultInboundIdleMS
	}
	if c.Inbound.MaxActive < 0 {
		return fmt.Errorf("inbound.max_active must be >= 0")
	}
	return nil
}
