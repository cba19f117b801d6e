// Package config reads the service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type CORSConfig struct {
	// Empty allows every origin.
	AllowedOrigins []string
}

type SecurityConfig struct {
	EnableHSTS   bool
	HSTSMaxAge   time.Duration
	CacheControl string // sent on every response; CACHE_CONTROL=off sends none
}

type OTELConfig struct {
	Enabled     bool
	Endpoint    string // OTLP/gRPC collector, e.g. "otel:4317"
	Insecure    bool
	ServiceName string
	SampleRatio float64 // [0, 1]
}

// Config is the full set of settings. Load documents the variable behind
// each field.
type Config struct {
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug, release or test

	LogLevel       string
	LogPretty      bool
	LogRedact      bool // scrub emails, phone numbers and UUIDs from access logs
	SwaggerEnabled bool
	APIBasePath    string
	MealPath       string

	DBPath   string
	SeedPath string // loaded into an empty store by serve

	RateRPS   float64
	RateBurst int

	CORS     CORSConfig
	Security SecurityConfig
	OTEL     OTELConfig
}

// MealRoute is the list route, e.g. "/meal" or "/api/v1/meal".
func (c Config) MealRoute() string {
	if c.APIBasePath == "/" || c.APIBasePath == "" {
		return c.MealPath
	}
	return c.APIBasePath + c.MealPath
}

// Load builds a Config from the environment. Unset or empty variables take
// their defaults. A value that does not parse is an error rather than a
// silent fallback, and every problem found is reported together.
func Load() (Config, error) {
	var env envReader
	cfg := Config{
		Port:              env.str("PORT", "8080"),
		ReadTimeout:       env.duration("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: env.duration("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      env.duration("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       env.duration("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   env.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    env.integer("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(env.str("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(env.str("LOG_LEVEL", "info")),
		LogPretty:      env.flag("LOG_PRETTY", false),
		LogRedact:      env.flag("LOG_REDACT", true),
		SwaggerEnabled: env.flag("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(env.str("API_BASE_PATH", "/")),
		MealPath:       normalizeBasePath(env.str("MEAL_PATH", "/meal")),

		DBPath:   env.str("DB_PATH", "meals.db"),
		SeedPath: strings.TrimSpace(env.str("SEED_PATH", "")),

		RateRPS:   env.number("RATE_RPS", 5),
		RateBurst: env.integer("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(env.str("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS:   env.flag("ENABLE_HSTS", false),
			HSTSMaxAge:   env.duration("HSTS_MAX_AGE", 180*24*time.Hour),
			CacheControl: strings.TrimSpace(env.str("CACHE_CONTROL", "no-cache")),
		},
		OTEL: OTELConfig{
			Enabled:     env.flag("OTEL_ENABLED", false),
			Endpoint:    env.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    env.flag("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: env.str("OTEL_SERVICE_NAME", "go-meal-backend"),
			SampleRatio: env.number("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if strings.EqualFold(cfg.Security.CacheControl, "off") {
		cfg.Security.CacheControl = ""
	}

	errs := env.errs
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error, fatal, panic", cfg.LogLevel))
	}
	check(strings.TrimSpace(cfg.Port) != "", "PORT must not be empty")
	check(cfg.ReadTimeout > 0 && cfg.ReadHeaderTimeout > 0 && cfg.WriteTimeout > 0 &&
		cfg.IdleTimeout > 0 && cfg.ShutdownTimeout > 0, "timeouts must be positive durations")
	check(cfg.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	check(strings.TrimSpace(cfg.DBPath) != "", "DB_PATH must not be empty")
	check(cfg.MealPath != "/", "MEAL_PATH must name a resource, not the root")
	check(cfg.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(cfg.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(cfg.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(cfg.OTEL.SampleRatio >= 0 && cfg.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return cfg, errors.Join(errs...)
}

// envReader looks variables up and remembers every value that failed to
// parse.
type envReader struct {
	errs []error
}

func (r *envReader) lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	return v, ok && v != ""
}

func (r *envReader) bad(k, v, want string) {
	r.errs = append(r.errs, fmt.Errorf("%s=%q is not %s", k, v, want))
}

func (r *envReader) str(k, def string) string {
	if v, ok := r.lookup(k); ok {
		return v
	}
	return def
}

func (r *envReader) integer(k string, def int) int {
	v, ok := r.lookup(k)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.bad(k, v, "an integer")
		return def
	}
	return i
}

func (r *envReader) number(k string, def float64) float64 {
	v, ok := r.lookup(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		r.bad(k, v, "a number")
		return def
	}
	return f
}

func (r *envReader) duration(k string, def time.Duration) time.Duration {
	v, ok := r.lookup(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		r.bad(k, v, "a duration")
		return def
	}
	return d
}

func (r *envReader) flag(k string, def bool) bool {
	v, ok := r.lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	r.bad(k, v, "a boolean")
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath gives p one leading slash and no trailing one; empty is
// "/".
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
