package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything tunable about the agent. Values come from
// environment variables prefixed with NABZ_ (dots become underscores),
// overriding an optional nabz.yaml in the working directory.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string

	// Redis backs both the cache probe and the messaging (pub/sub) probe.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Postgres pool probed for utilization; empty URL disables the probe.
	DatabaseURL string
	SlowQueryMS float64

	CollectInterval  time.Duration
	AlertInterval    time.Duration
	CleanupInterval  time.Duration
	Retention        time.Duration
	ProbeTimeout     time.Duration
	ThroughputWindow time.Duration

	// Best-effort telemetry push; empty URL disables it.
	TelemetryURL   string
	TelemetryToken string

	JWTSecret   string
	TokenExpiry time.Duration
}

// Load reads configuration, falling back to the stock intervals.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("NABZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", "localhost:8080")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("database_url", "")
	v.SetDefault("slow_query_ms", 100.0)
	v.SetDefault("collect_interval", 10*time.Second)
	v.SetDefault("alert_interval", 60*time.Second)
	v.SetDefault("cleanup_interval", 300*time.Second)
	v.SetDefault("retention", 24*time.Hour)
	v.SetDefault("probe_timeout", 2*time.Second)
	v.SetDefault("throughput_window", 60*time.Second)
	v.SetDefault("telemetry_url", "")
	v.SetDefault("telemetry_token", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_expiry", 90*24*time.Hour)

	v.SetConfigName("nabz")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // config file is optional

	return &Config{
		ListenAddr:       v.GetString("listen_addr"),
		AllowedOrigins:   v.GetStringSlice("allowed_origins"),
		RedisAddr:        v.GetString("redis_addr"),
		RedisPassword:    v.GetString("redis_password"),
		RedisDB:          v.GetInt("redis_db"),
		DatabaseURL:      v.GetString("database_url"),
		SlowQueryMS:      v.GetFloat64("slow_query_ms"),
		CollectInterval:  v.GetDuration("collect_interval"),
		AlertInterval:    v.GetDuration("alert_interval"),
		CleanupInterval:  v.GetDuration("cleanup_interval"),
		Retention:        v.GetDuration("retention"),
		ProbeTimeout:     v.GetDuration("probe_timeout"),
		ThroughputWindow: v.GetDuration("throughput_window"),
		TelemetryURL:     v.GetString("telemetry_url"),
		TelemetryToken:   v.GetString("telemetry_token"),
		JWTSecret:        v.GetString("jwt_secret"),
		TokenExpiry:      v.GetDuration("token_expiry"),
	}
}
