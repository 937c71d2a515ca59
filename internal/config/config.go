package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	Name      string          `mapstructure:"name"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      ServerConfig    `mapstructure:"http"`
	GRPC      ServerConfig    `mapstructure:"grpc"`
	Book      BookConfig      `mapstructure:"book"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Sink      SinkConfig      `mapstructure:"sink"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type BookConfig struct {
	Depth    int  `mapstructure:"depth"`
	MaxDepth int  `mapstructure:"max_depth"`
	SeedDemo bool `mapstructure:"seed_demo"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// PostgresConfig enables the execution journal when DSN is set.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig enables book publishing when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Channel  string        `mapstructure:"channel"`
}

type BreakerConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	Failures uint32        `mapstructure:"failures"`
}

type SinkConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("name", service)
	v.SetDefault("log.level", "info")
	v.SetDefault("http.addr", ":9000")
	v.SetDefault("grpc.addr", ":9001")
	v.SetDefault("book.depth", 10)
	v.SetDefault("book.max_depth", 100)
	v.SetDefault("book.seed_demo", false)
	v.SetDefault("ratelimit.rps", 200)
	v.SetDefault("ratelimit.burst", 400)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "5m")
	v.SetDefault("redis.channel", service+":book")
	v.SetDefault("breaker.timeout", "5s")
	v.SetDefault("breaker.failures", 5)
	v.SetDefault("sink.timeout", "250ms")
}

// Load reads config/{service}.yaml (or ./{service}.yaml) when present, then
// applies {SERVICE}_* environment overrides, e.g. LIMITBOOK_HTTP_ADDR for
// http.addr. A bare PORT variable replaces the HTTP port.
func Load(service string, paths ...string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v, service)

	v.SetConfigName(service)
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(strings.ToUpper(service))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("config: read: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// Watch calls onChange with the re-decoded config whenever the loaded file
// changes. Invalid edits are reported to onError and otherwise ignored.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.HTTP.Addr = ":" + port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.HTTP.Addr == "":
		return errors.New("config: http.addr is empty")
	case c.Book.Depth <= 0:
		return fmt.Errorf("config: book.depth must be > 0, got %d", c.Book.Depth)
	case c.Book.MaxDepth < c.Book.Depth:
		return fmt.Errorf("config: book.max_depth %d below book.depth %d", c.Book.MaxDepth, c.Book.Depth)
	case c.RateLimit.RPS < 0:
		return fmt.Errorf("config: ratelimit.rps must be >= 0, got %v", c.RateLimit.RPS)
	case c.Sink.Timeout <= 0:
		return fmt.Errorf("config: sink.timeout must be > 0, got %s", c.Sink.Timeout)
	}
	return nil
}
