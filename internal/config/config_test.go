package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// configEnvKeys are cleared by clearEnv so the host environment cannot leak in.
var configEnvKeys = []string{
	"ENV", "LOG_LEVEL", "INDEX_BACKEND", "DATA_PATH",
	"LEDGER_SOURCE", "LEDGER_FILE", "KAFKA_BROKERS", "KAFKA_TOPIC", "KAFKA_GROUP_ID",
	"WRITER_MAX_ATTEMPTS", "WRITER_INITIAL_BACKOFF", "WRITER_MAX_BACKOFF",
	"RECENT_WINDOW", "CONTENT_SCHEME", "RECONCILE_INTERVAL", "RECONCILE_BATCH_SIZE",
	"SERVER_PORT", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "OPERATOR_TOKEN_DURATION",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
}

func validConfig() *Config {
	return &Config{
		App:       AppConfig{Environment: "development"},
		Logger:    LoggerConfig{Level: "info"},
		Index:     IndexConfig{Backend: BackendBadger, DataPath: "/data"},
		Ledger:    LedgerConfig{Source: LedgerFile, File: "/data/ledger.jsonl"},
		Writer:    WriterConfig{MaxAttempts: 5},
		Query:     QueryConfig{RecentWindow: 168 * time.Hour},
		Content:   ContentConfig{Scheme: "ipfs"},
		Reconcile: ReconcileConfig{Interval: time.Hour, BatchSize: 500},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true}, // case insensitive
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown backend", func(c *Config) { c.Index.Backend = "postgres" }, "invalid index backend"},
		{"empty data path", func(c *Config) { c.Index.DataPath = "" }, "data path cannot be empty"},
		{"unknown ledger source", func(c *Config) { c.Ledger.Source = "rpc" }, "invalid ledger source"},
		{"file source without file", func(c *Config) { c.Ledger.File = "" }, "LEDGER_FILE is required"},
		{"kafka without brokers", func(c *Config) {
			c.Ledger.Source = LedgerKafka
			c.Ledger.KafkaTopic = "facts"
		}, "KAFKA_BROKERS is required"},
		{"kafka without topic", func(c *Config) {
			c.Ledger.Source = LedgerKafka
			c.Ledger.KafkaBrokers = []string{"localhost:9092"}
		}, "KAFKA_TOPIC is required"},
		{"uppercase scheme", func(c *Config) { c.Content.Scheme = "IPFS" }, "invalid content scheme"},
		{"scheme with separator", func(c *Config) { c.Content.Scheme = "ipfs://" }, "invalid content scheme"},
		{"zero recent window", func(c *Config) { c.Query.RecentWindow = 0 }, "recent window must be positive"},
		{"zero writer attempts", func(c *Config) { c.Writer.MaxAttempts = 0 }, "writer max attempts"},
		{"negative interval", func(c *Config) { c.Reconcile.Interval = -time.Second }, "reconcile interval"},
		{"zero batch size", func(c *Config) { c.Reconcile.BatchSize = 0 }, "reconcile batch size"},
		{"negative rate limit", func(c *Config) { c.Server.RateLimitRPS = -1 }, "rate limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate_MemoryAndKafkaSources(t *testing.T) {
	cfg := validConfig()
	cfg.Ledger = LedgerConfig{Source: LedgerMemory}
	assert.NoError(t, cfg.Validate())

	cfg.Ledger = LedgerConfig{Source: LedgerKafka, KafkaBrokers: []string{"a:9092"}, KafkaTopic: "facts"}
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load([]string{"-env-file", filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	dataPath := filepath.Join(homeDir, "TasteIndex", "data")

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, BackendBadger, cfg.Index.Backend)
	assert.Equal(t, dataPath, cfg.Index.DataPath)
	assert.Equal(t, LedgerFile, cfg.Ledger.Source)
	assert.Equal(t, filepath.Join(dataPath, "ledger.jsonl"), cfg.Ledger.File)
	assert.Equal(t, "taste.facts", cfg.Ledger.KafkaTopic)
	assert.Equal(t, "taste-index", cfg.Ledger.KafkaGroupID)
	assert.Equal(t, 5, cfg.Writer.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Writer.InitialBackoff)
	assert.Equal(t, 500*time.Millisecond, cfg.Writer.MaxBackoff)
	assert.Equal(t, 168*time.Hour, cfg.Query.RecentWindow)
	assert.Equal(t, "ipfs", cfg.Content.Scheme)
	assert.Equal(t, time.Hour, cfg.Reconcile.Interval)
	assert.Equal(t, 500, cfg.Reconcile.BatchSize)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Empty(t, cfg.Server.CORSOrigins)
	assert.InDelta(t, 20.0, cfg.Server.RateLimitRPS, 0.001)
	assert.Equal(t, 40, cfg.Server.RateLimitBurst)
	assert.Equal(t, 24*time.Hour, cfg.Auth.OperatorTokenDuration)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	dataDir := t.TempDir()
	t.Setenv("INDEX_BACKEND", BackendBadger)
	t.Setenv("DATA_PATH", dataDir)
	t.Setenv("RECENT_WINDOW", "24h")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CORS_ORIGINS", "https://taste.app,https://admin.taste.app")

	cfg, err := Load([]string{
		"-env-file", filepath.Join(dataDir, "missing.env"),
		"-index-backend", BackendSQLite,
		"-ledger-source", LedgerKafka,
		"-recent-window", "48h",
	})
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Index.Backend)
	assert.Equal(t, dataDir, cfg.Index.DataPath)
	assert.Equal(t, 48*time.Hour, cfg.Query.RecentWindow)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Ledger.KafkaBrokers)
	assert.Equal(t, []string{"https://taste.app", "https://admin.taste.app"}, cfg.Server.CORSOrigins)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "ENV=staging\nDATA_PATH=" + dir + "\nLEDGER_SOURCE=memory\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	cfg, err := Load([]string{"-env-file", envFile})
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, LedgerMemory, cfg.Ledger.Source)
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("RECONCILE_INTERVAL", "hourly")

	_, err := Load([]string{"-env-file", filepath.Join(t.TempDir(), "missing.env")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECONCILE_INTERVAL")
}

func TestLoad_KafkaRequiresBrokers(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEDGER_SOURCE", LedgerKafka)

	_, err := Load([]string{"-env-file", filepath.Join(t.TempDir(), "missing.env")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_UnknownFlag(t *testing.T) {
	clearEnv(t)

	_, err := Load([]string{"-metadata-path", "/tmp"})
	assert.Error(t, err)
}

func TestExpandDataPath(t *testing.T) {
	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty uses default", "", filepath.Join(homeDir, "TasteIndex", "data")},
		{"tilde", "~/my-data", filepath.Join(homeDir, "my-data")},
		{"absolute", "/absolute/path/to/data", "/absolute/path/to/data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Index: IndexConfig{DataPath: tt.input}}
			require.NoError(t, cfg.expandDataPath())
			assert.Equal(t, tt.want, cfg.Index.DataPath)
		})
	}
}

func TestExpandDataPath_RelativePath(t *testing.T) {
	cfg := &Config{Index: IndexConfig{DataPath: "relative/path"}}

	require.NoError(t, cfg.expandDataPath())

	assert.True(t, filepath.IsAbs(cfg.Index.DataPath))
	assert.Contains(t, cfg.Index.DataPath, "relative/path")
}

func TestGetConfigValue_Precedence(t *testing.T) {
	// Flag value takes priority.
	assert.Equal(t, "flag-value", getConfigValue("flag-value", "TEST_ENV_KEY", "default-value"))

	t.Setenv("TEST_ENV_KEY", "env-value")
	assert.Equal(t, "env-value", getConfigValue("", "TEST_ENV_KEY", "default-value"))

	assert.Equal(t, "default-value", getConfigValue("", "NONEXISTENT_KEY", "default-value"))
}

func TestGetNumericConfigValues(t *testing.T) {
	t.Setenv("TEST_INT", "12")
	t.Setenv("TEST_BAD_INT", "twelve")
	t.Setenv("TEST_FLOAT", "2.5")

	assert.Equal(t, 12, getIntConfigValue("", "TEST_INT", 1))
	assert.Equal(t, 1, getIntConfigValue("", "TEST_BAD_INT", 1))
	assert.Equal(t, 7, getIntConfigValue("7", "TEST_INT", 1))
	assert.InDelta(t, 2.5, getFloatConfigValue("", "TEST_FLOAT", 1), 0.001)
	assert.InDelta(t, 1.0, getFloatConfigValue("", "TEST_MISSING_FLOAT", 1), 0.001)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList(" , ,"))
	assert.Equal(t, []string{"a", "b"}, splitList("a, b ,"))
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")

	content := `# Test env file
ENV=staging
LOG_LEVEL=debug
DATA_PATH=/test/path
# Comment line
QUOTED_VALUE="some value"
SINGLE_QUOTED='another value'
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	for _, k := range []string{"ENV", "LOG_LEVEL", "DATA_PATH", "QUOTED_VALUE", "SINGLE_QUOTED"} {
		t.Setenv(k, "")
	}

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "staging", os.Getenv("ENV"))
	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "/test/path", os.Getenv("DATA_PATH"))
	assert.Equal(t, "some value", os.Getenv("QUOTED_VALUE"))
	assert.Equal(t, "another value", os.Getenv("SINGLE_QUOTED"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")

	content := `VALID_KEY=valid_value
INVALID LINE WITHOUT EQUALS
ANOTHER_VALID=value
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))
	t.Setenv("VALID_KEY", "")

	err := loadEnvFile(envFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	assert.Error(t, loadEnvFile("/nonexistent/file/.env"))
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("TEST_VAR", "original-value")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`TEST_VAR=new-value`), 0o644))

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}

func TestLoadEnvFile_Whitespace(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`  KEY_WITH_SPACES  =  value with spaces  `), 0o644))
	t.Setenv("KEY_WITH_SPACES", "")

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "value with spaces", os.Getenv("KEY_WITH_SPACES"))
}
