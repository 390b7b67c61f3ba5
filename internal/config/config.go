// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Index backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Ledger sources.
const (
	LedgerMemory = "memory"
	LedgerFile   = "file"
	LedgerKafka  = "kafka"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Index     IndexConfig
	Ledger    LedgerConfig
	Writer    WriterConfig
	Query     QueryConfig
	Content   ContentConfig
	Reconcile ReconcileConfig
	Server    ServerConfig
	Auth      AuthConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// IndexConfig selects the index store and where it keeps its files.
type IndexConfig struct {
	Backend  string // badger or sqlite (default: badger)
	DataPath string // store, search index and auth key live here
}

// LedgerConfig selects where confirmed facts come from.
type LedgerConfig struct {
	Source string // memory, file or kafka (default: file)
	// File is the JSONL export tailed by the file source (default: {data}/ledger.jsonl).
	File string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string
}

// WriterConfig bounds write-conflict retries.
type WriterConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// QueryConfig holds read-side settings.
type QueryConfig struct {
	// RecentWindow is the span the "recent" leaderboard covers (default: 168h).
	RecentWindow time.Duration
}

// ContentConfig holds content locator settings.
type ContentConfig struct {
	Scheme string // required locator scheme (default: ipfs)
}

// ReconcileConfig holds background reconcile settings.
type ReconcileConfig struct {
	Interval  time.Duration // 0 disables scheduled runs (default: 1h)
	BatchSize int           // facts read from the ledger per page (default: 500)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 8080)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins    []string      // empty allows any origin
	RateLimitRPS   float64       // per client IP; 0 disables (default: 20)
	RateLimitBurst int           // (default: 40)
}

// AuthConfig holds operator token configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key, loaded from {data}/auth.key by the caller.
	OperatorTokenKey      []byte
	OperatorTokenDuration time.Duration // e.g., 24h
}

var schemePattern = regexp.MustCompile(`^[a-z][a-z0-9+.-]*$`)

// LoadConfig loads configuration from the process arguments. See Load.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("taste-index", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	backend := fs.String("index-backend", "", "Index store backend (badger, sqlite)")
	dataPath := fs.String("data-path", "", "Directory for index data (default: ~/TasteIndex/data)")

	ledgerSource := fs.String("ledger-source", "", "Ledger source (memory, file, kafka)")
	ledgerFile := fs.String("ledger-file", "", "JSONL ledger export to tail")
	kafkaBrokers := fs.String("kafka-brokers", "", "Comma-separated Kafka brokers")
	kafkaTopic := fs.String("kafka-topic", "", "Kafka topic carrying confirmed facts")
	kafkaGroupID := fs.String("kafka-group-id", "", "Kafka consumer group")

	writerAttempts := fs.String("writer-max-attempts", "", "Attempts per write before giving up on conflicts (default: 5)")
	writerInitial := fs.String("writer-initial-backoff", "", "First conflict retry delay (default: 10ms)")
	writerMax := fs.String("writer-max-backoff", "", "Largest conflict retry delay (default: 500ms)")

	recentWindow := fs.String("recent-window", "", "Recent leaderboard window (default: 168h)")
	contentScheme := fs.String("content-scheme", "", "Required content locator scheme (default: ipfs)")

	reconcileInterval := fs.String("reconcile-interval", "", "Background reconcile interval, 0 to disable (default: 1h)")
	reconcileBatch := fs.String("reconcile-batch-size", "", "Facts read per reconcile page (default: 500)")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins (default: any)")
	rateLimitRPS := fs.String("rate-limit-rps", "", "Requests per second per client IP, 0 to disable (default: 20)")
	rateLimitBurst := fs.String("rate-limit-burst", "", "Rate limit burst (default: 40)")

	tokenDuration := fs.String("operator-token-duration", "", "Operator token lifetime (e.g., 24h)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Index: IndexConfig{
			Backend:  getConfigValue(*backend, "INDEX_BACKEND", BackendBadger),
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Ledger: LedgerConfig{
			Source:       getConfigValue(*ledgerSource, "LEDGER_SOURCE", LedgerFile),
			File:         getConfigValue(*ledgerFile, "LEDGER_FILE", ""),
			KafkaBrokers: splitList(getConfigValue(*kafkaBrokers, "KAFKA_BROKERS", "")),
			KafkaTopic:   getConfigValue(*kafkaTopic, "KAFKA_TOPIC", "taste.facts"),
			KafkaGroupID: getConfigValue(*kafkaGroupID, "KAFKA_GROUP_ID", "taste-index"),
		},
		Writer: WriterConfig{
			MaxAttempts: getIntConfigValue(*writerAttempts, "WRITER_MAX_ATTEMPTS", 5),
		},
		Content: ContentConfig{
			Scheme: getConfigValue(*contentScheme, "CONTENT_SCHEME", "ipfs"),
		},
		Reconcile: ReconcileConfig{
			BatchSize: getIntConfigValue(*reconcileBatch, "RECONCILE_BATCH_SIZE", 500),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins:    splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "")),
			RateLimitRPS:   getFloatConfigValue(*rateLimitRPS, "RATE_LIMIT_RPS", 20),
			RateLimitBurst: getIntConfigValue(*rateLimitBurst, "RATE_LIMIT_BURST", 40),
		},
	}

	durations := []struct {
		flagValue, envKey, def string
		dest                   *time.Duration
	}{
		{*writerInitial, "WRITER_INITIAL_BACKOFF", "10ms", &cfg.Writer.InitialBackoff},
		{*writerMax, "WRITER_MAX_BACKOFF", "500ms", &cfg.Writer.MaxBackoff},
		{*recentWindow, "RECENT_WINDOW", "168h", &cfg.Query.RecentWindow},
		{*reconcileInterval, "RECONCILE_INTERVAL", "1h", &cfg.Reconcile.Interval},
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*tokenDuration, "OPERATOR_TOKEN_DURATION", "24h", &cfg.Auth.OperatorTokenDuration},
	}
	for _, d := range durations {
		v, err := getDurationConfigValue(d.flagValue, d.envKey, d.def)
		if err != nil {
			return nil, err
		}
		*d.dest = v
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.expandLedgerFile(); err != nil {
		return nil, fmt.Errorf("invalid ledger file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	validBackends := map[string]bool{
		BackendBadger: true,
		BackendSQLite: true,
	}
	if !validBackends[c.Index.Backend] {
		return fmt.Errorf("invalid index backend: %s (must be badger or sqlite)", c.Index.Backend)
	}

	if c.Index.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	switch c.Ledger.Source {
	case LedgerMemory:
	case LedgerFile:
		if c.Ledger.File == "" {
			return errors.New("LEDGER_FILE is required for the file ledger source")
		}
	case LedgerKafka:
		if len(c.Ledger.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required for the kafka ledger source")
		}
		if c.Ledger.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required for the kafka ledger source")
		}
	default:
		return fmt.Errorf("invalid ledger source: %s (must be memory, file, or kafka)", c.Ledger.Source)
	}

	if !schemePattern.MatchString(c.Content.Scheme) {
		return fmt.Errorf("invalid content scheme: %q", c.Content.Scheme)
	}

	if c.Query.RecentWindow <= 0 {
		return fmt.Errorf("recent window must be positive, got %s", c.Query.RecentWindow)
	}

	if c.Writer.MaxAttempts < 1 {
		return fmt.Errorf("writer max attempts must be at least 1, got %d", c.Writer.MaxAttempts)
	}

	if c.Reconcile.Interval < 0 {
		return fmt.Errorf("reconcile interval cannot be negative, got %s", c.Reconcile.Interval)
	}

	if c.Reconcile.BatchSize < 1 {
		return fmt.Errorf("reconcile batch size must be at least 1, got %d", c.Reconcile.BatchSize)
	}

	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("rate limit cannot be negative, got %g", c.Server.RateLimitRPS)
	}

	// Auth key is set by auth.LoadOrGenerateKey during bootstrap.

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "TasteIndex", "data")

	expanded, err := expandPath(c.Index.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Index.DataPath = expanded
	return nil
}

// expandLedgerFile defaults the export to {data}/ledger.jsonl.
func (c *Config) expandLedgerFile() error {
	defaultPath := filepath.Join(c.Index.DataPath, "ledger.jsonl")

	expanded, err := expandPath(c.Ledger.File, defaultPath)
	if err != nil {
		return err
	}
	c.Ledger.File = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue parses a duration from flag, env var, or default.
// Unlike the other getters a malformed value is an error.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return d, nil
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
