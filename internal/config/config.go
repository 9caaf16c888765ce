package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	Storage  string         `yaml:"storage" env:"STORAGE" env-default:"memory"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Chat     ChatConfig     `yaml:"chat"`
	Redis    RedisConfig    `yaml:"redis"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	AllowedOrigins []string `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" env:"DATABASE_DSN"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS" env-default:"10"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS" env-default:"25"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME" env-default:"30m"`
}

// ChatConfig tunes the matchmaking hub.
type ChatConfig struct {
	LivenessTimeout     time.Duration `yaml:"liveness_timeout" env:"CHAT_LIVENESS_TIMEOUT" env-default:"15s"`
	SweepInterval       time.Duration `yaml:"sweep_interval" env:"CHAT_SWEEP_INTERVAL" env-default:"15s"`
	CollaboratorTimeout time.Duration `yaml:"collaborator_timeout" env:"CHAT_COLLABORATOR_TIMEOUT" env-default:"5s"`
	EventBuffer         int           `yaml:"event_buffer" env:"CHAT_EVENT_BUFFER" env-default:"64"`
	MaxMessageLength    int           `yaml:"max_message_length" env:"CHAT_MAX_MESSAGE_LENGTH" env-default:"4000"`
}

// RedisConfig enables mirroring of waiting counts to a Redis channel. Empty URL disables it.
type RedisConfig struct {
	URL     string `yaml:"url" env:"REDIS_URL"`
	Channel string `yaml:"channel" env:"REDIS_CHANNEL" env-default:"tutorchat:counts"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	cfg.setDefaults()

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.Storage == "" {
		c.Storage = StorageMemory
	}
	if c.Chat.LivenessTimeout <= 0 {
		c.Chat.LivenessTimeout = 15 * time.Second
	}
	if c.Chat.SweepInterval <= 0 {
		c.Chat.SweepInterval = c.Chat.LivenessTimeout
	}
	if c.Chat.CollaboratorTimeout <= 0 {
		c.Chat.CollaboratorTimeout = 5 * time.Second
	}
	if c.Chat.EventBuffer <= 0 {
		c.Chat.EventBuffer = 64
	}
	if c.Chat.MaxMessageLength <= 0 {
		c.Chat.MaxMessageLength = 4000
	}
}
