package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
database:
  host: "localhost"
  port: 5432
  user: "user"
  password: "password"
  db_name: "db"
redis:
  addr: "localhost:6379"
kafka:
  brokers: ["localhost:9092"]
  group_id: "group"
milvus:
  addr: "localhost:19530"
ai_engine:
  url: "http://localhost:8100"
  max_batch_size: 64
ingestion:
  max_csv_size_mb: 100
  max_rows: 500000
  large_file_threshold: 10000
worker:
  concurrency: 5
log:
  level: "info"
  format: "json"
`

func createTempConfigFile(t *testing.T, content string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

func setEnvVars(t *testing.T, vars map[string]string) {
	for k, v := range vars {
		os.Setenv(k, v)
	}
	t.Cleanup(func() {
		for k := range vars {
			os.Unsetenv(k)
		}
	})
}

func TestLoadFromFileValidConfig(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := Load("non_existent_config.yaml")
	assert.Error(t, err)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	path := createTempConfigFile(t, "invalid_yaml: [")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	setEnvVars(t, map[string]string{
		"MOLDEX_DATABASE_HOST": "db-host",
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db-host", cfg.Database.Host)
}

func TestLoadDefaultValuesApplied(t *testing.T) {
	minimalYAML := `
database:
  host: "localhost"
  db_name: "db"
redis:
  addr: "localhost:6379"
kafka:
  brokers: ["localhost:9092"]
  group_id: "group"
milvus:
  addr: "localhost:19530"
ai_engine:
  url: "http://localhost:8100"
`
	path := createTempConfigFile(t, minimalYAML)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultDBPort, cfg.Database.Port)
}

func TestLoadFromEnvNoFile(t *testing.T) {
	setEnvVars(t, map[string]string{
		"MOLDEX_DATABASE_HOST":        "localhost",
		"MOLDEX_DATABASE_DB_NAME":     "db",
		"MOLDEX_REDIS_ADDR":           "localhost:6379",
		"MOLDEX_KAFKA_GROUP_ID":       "group",
		"MOLDEX_MILVUS_ADDR":          "localhost:19530",
		"MOLDEX_AI_ENGINE_URL":        "http://localhost:8100",
	})
	os.Setenv("MOLDEX_KAFKA_BROKERS", "localhost:9092")
	t.Cleanup(func() { os.Unsetenv("MOLDEX_KAFKA_BROKERS") })

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Database.Host)
}

func TestMustLoadSuccess(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	assert.NotPanics(t, func() {
		MustLoad(path)
	})
}

func TestMustLoadPanicsOnMissingFile(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad("non_existent.yaml")
	})
}

func TestWatchDoesNotPanicOnValidFile(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	assert.NotPanics(t, func() {
		Watch(path, func(cfg *Config) {})
	})
}
