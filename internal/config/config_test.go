package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "grocery.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://www.ah.nl", cfg.AH.BaseURL)
	assert.Equal(t, 36, cfg.AH.PageSize)
	assert.Len(t, cfg.AH.Categories, 25)
	assert.Equal(t, "9344", cfg.AH.Categories["vlees"])
	assert.Equal(t, []string{"baby", "kind", "huisdier", "dier"}, cfg.AH.BlacklistKeywords)
	assert.Equal(t, 600, cfg.AH.MinDelayMS)
	assert.Equal(t, 1200, cfg.AH.MaxDelayMS)
	assert.Equal(t, "google", cfg.Translate.Provider)
	assert.Equal(t, 50, cfg.Translate.BatchSize)
	assert.Equal(t, 200, cfg.Translate.PauseMS)
	assert.Equal(t, "nl", cfg.Translate.SourceLang)
	assert.Equal(t, "en", cfg.Translate.TargetLang)
	assert.Equal(t, "product_translation_memory.csv", cfg.Memory.Path)
	assert.Equal(t, 85, cfg.Mapping.Threshold)
	assert.Equal(t, 3, cfg.Mapping.MaxCandidates)
	assert.Equal(t, "albert_heijn", cfg.Mapping.StoreLabel)
	assert.Equal(t, "sheets", cfg.Ledger.Backend)
	assert.Equal(t, "Raw", cfg.Ledger.Tab)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/grocery
log:
  level: debug
  format: console
mapping:
  threshold: 90
ledger:
  backend: xlsx
  xlsx_path: purchases.xlsx
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/grocery", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 90, cfg.Mapping.Threshold)
	assert.Equal(t, "xlsx", cfg.Ledger.Backend)
	assert.Equal(t, "purchases.xlsx", cfg.Ledger.XLSXPath)
	// Defaults still apply for unset values
	assert.Equal(t, 50, cfg.Translate.BatchSize)
	assert.Equal(t, 36, cfg.AH.PageSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("GROCERY_STORE_DRIVER", "sqlite")
	t.Setenv("GROCERY_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("GROCERY_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config populated like the shipped defaults for
// validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.AH.PageSize = 36
	cfg.AH.Categories = map[string]string{"vlees": "9344"}
	cfg.AH.MinDelayMS = 600
	cfg.AH.MaxDelayMS = 1200
	cfg.Translate.Provider = "google"
	cfg.Translate.BatchSize = 50
	cfg.Memory.Path = "product_translation_memory.csv"
	cfg.Mapping.Threshold = 85
	cfg.Mapping.MaxCandidates = 3
	cfg.Ledger.Backend = "sheets"
	cfg.Ledger.SpreadsheetID = "sheet-id"
	cfg.Ledger.CredentialsFile = "creds.json"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateScrape_OK(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("scrape"))
}

func TestValidateScrape_BadDelays(t *testing.T) {
	cfg := validDefaults()
	cfg.AH.MinDelayMS = 2000

	err := cfg.Validate("scrape")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "min_delay_ms must be <= max_delay_ms")
}

func TestValidateScrape_NoCategories(t *testing.T) {
	cfg := validDefaults()
	cfg.AH.Categories = nil

	err := cfg.Validate("scrape")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "categories must not be empty")
}

func TestValidateTranslate_AnthropicNeedsKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Translate.Provider = "anthropic"

	err := cfg.Validate("translate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic_key is required")

	cfg.Translate.AnthropicKey = "sk-ant-key"
	assert.NoError(t, cfg.Validate("translate"))
}

func TestValidateMap_SheetsRequiresCredentials(t *testing.T) {
	cfg := validDefaults()
	cfg.Ledger.SpreadsheetID = ""
	cfg.Ledger.CredentialsFile = ""

	err := cfg.Validate("map")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ledger.spreadsheet_id is required")
	assert.Contains(t, err.Error(), "ledger.credentials_file is required")
}

func TestValidateMap_XLSXRequiresPath(t *testing.T) {
	cfg := validDefaults()
	cfg.Ledger.Backend = "xlsx"

	err := cfg.Validate("map")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ledger.xlsx_path is required")

	cfg.Ledger.XLSXPath = "purchases.xlsx"
	assert.NoError(t, cfg.Validate("map"))
}

func TestValidateMap_ThresholdBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Mapping.Threshold = 101
	err := cfg.Validate("map")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "threshold must be between 0 and 100")

	cfg.Mapping.Threshold = 100
	assert.NoError(t, cfg.Validate("map"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
