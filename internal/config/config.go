package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Abuse     AbuseConfig
	Inference InferenceConfig
	Dash      DashConfig
	Log       LogConfig
}

type AppConfig struct {
	Name    string
	Version string
	Model   string
}

type ServerConfig struct {
	Host               string
	Port               int
	CORSAllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32

	AutoMigrate    bool
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig is optional; an empty URL disables event publishing.
type NATSConfig struct {
	URL string
}

// AbuseConfig drives the per-client quota and anti-abuse gate.
type AbuseConfig struct {
	Enabled            bool
	DailyLimit         int
	CooldownDays       int
	CooldownDailyLimit int
	BurstMinIntervalMS int
	BurstBlockSeconds  int
	Collection         string
	FailClosed         bool
	StoreTimeout       time.Duration
}

type InferenceConfig struct {
	StoreEnabled bool
	MaxTextLen   int
}

// DashConfig protects the operator dashboard endpoints.
type DashConfig struct {
	APIKey string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    k.String("app.name"),
			Version: k.String("app.version"),
			Model:   k.String("app.model"),
		},
		Server: ServerConfig{
			Host:               k.String("server.host"),
			Port:               k.Int("server.port"),
			CORSAllowedOrigins: splitList(k.String("server.cors.origins")),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),

			AutoMigrate:    k.Bool("db.auto.migrate"),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		Abuse: AbuseConfig{
			Enabled:            !k.Exists("abuse.enabled") || k.Bool("abuse.enabled"),
			DailyLimit:         k.Int("abuse.daily.limit"),
			CooldownDays:       k.Int("abuse.cooldown.days"),
			CooldownDailyLimit: k.Int("abuse.cooldown.daily.limit"),
			BurstMinIntervalMS: k.Int("abuse.burst.min.interval.ms"),
			BurstBlockSeconds:  k.Int("abuse.burst.block.seconds"),
			Collection:         k.String("abuse.collection"),
			FailClosed:         k.Bool("abuse.fail.closed"),
		},
		Inference: InferenceConfig{
			StoreEnabled: !k.Exists("inference.store.enabled") || k.Bool("inference.store.enabled"),
			MaxTextLen:   k.Int("inference.max.text.len"),
		},
		Dash: DashConfig{
			APIKey: k.String("dash.api.key"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.App.Name == "" {
		cfg.App.Name = "SentiQ Sentiment API"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "1.0.0"
	}
	if cfg.App.Model == "" {
		cfg.App.Model = "lexicon-v1"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "sentiq"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "sentiq"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Abuse.DailyLimit == 0 {
		cfg.Abuse.DailyLimit = 10
	}
	if cfg.Abuse.CooldownDays == 0 {
		cfg.Abuse.CooldownDays = 30
	}
	if cfg.Abuse.CooldownDailyLimit == 0 {
		cfg.Abuse.CooldownDailyLimit = 1
	}
	if cfg.Abuse.BurstMinIntervalMS == 0 {
		cfg.Abuse.BurstMinIntervalMS = 800
	}
	if cfg.Abuse.BurstBlockSeconds == 0 {
		cfg.Abuse.BurstBlockSeconds = 3600
	}
	if cfg.Abuse.Collection == "" {
		cfg.Abuse.Collection = "quota"
	}
	if cfg.Inference.MaxTextLen == 0 {
		cfg.Inference.MaxTextLen = 5000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	// Parse durations
	storeTimeoutStr := k.String("abuse.store.timeout")
	if storeTimeoutStr == "" {
		storeTimeoutStr = "2s"
	}
	cfg.Abuse.StoreTimeout, err = time.ParseDuration(storeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing abuse store timeout: %w", err)
	}

	return cfg, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
