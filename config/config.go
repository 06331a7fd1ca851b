package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"visor-api/notify"
	"visor-api/storage"
)

const (
	DefaultAddr      = "127.0.0.1:8745"
	DefaultBodyLimit = "64K"
)

// Config holds the runtime settings of the API server and CLI.
type Config struct {
	Addr            string
	DataDir         string
	BodyLimit       string
	RedisURL        string
	NotifyChannel   string
	ShutdownTimeout time.Duration
	Debug           bool
	LogFormat       string
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		Addr:            envString("VISOR_ADDR", DefaultAddr),
		DataDir:         envString("VISOR_DATA_DIR", ""),
		BodyLimit:       envString("VISOR_BODY_LIMIT", DefaultBodyLimit),
		RedisURL:        envString("REDIS_CONNECTION_STRING", ""),
		NotifyChannel:   envString("VISOR_NOTIFY_CHANNEL", notify.DefaultChannel),
		ShutdownTimeout: envDur("VISOR_SHUTDOWN_TIMEOUT", 5*time.Second),
		Debug:           envBool("DEBUG", false),
		LogFormat:       strings.ToLower(envString("LOG_FORMAT", "text")),
	}
	if port := envInt("VISOR_PORT", 0); port > 0 {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid listen address %q: %w", cfg.Addr, err)
		}
		cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	}
	if cfg.DataDir == "" {
		dir, err := storage.DefaultDir()
		if err != nil {
			return Config{}, err
		}
		cfg.DataDir = dir
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address required")
	}
	if err := checkLoopback(c.Addr); err != nil {
		return err
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir required")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %v", c.ShutdownTimeout)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.LogFormat)
	}
	return nil
}

// NewLogger builds the logger described by the configuration.
func (c Config) NewLogger() *log.Logger {
	logger := log.New()
	if c.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	if c.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	}
	return logger
}

// checkLoopback rejects listen addresses reachable from other machines.
func checkLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("listen address %q is not a loopback address", addr)
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
