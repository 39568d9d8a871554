package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	AH        AHConfig        `yaml:"albert_heijn" mapstructure:"albert_heijn"`
	Lidl      LidlConfig      `yaml:"lidl" mapstructure:"lidl"`
	Translate TranslateConfig `yaml:"translate" mapstructure:"translate"`
	Memory    MemoryConfig    `yaml:"memory" mapstructure:"memory"`
	Mapping   MappingConfig   `yaml:"mapping" mapstructure:"mapping"`
	Ledger    LedgerConfig    `yaml:"ledger" mapstructure:"ledger"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the snapshot/run database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AHConfig configures the Albert Heijn catalog fetcher.
type AHConfig struct {
	BaseURL           string            `yaml:"base_url" mapstructure:"base_url"`
	PageSize          int               `yaml:"page_size" mapstructure:"page_size"`
	Categories        map[string]string `yaml:"categories" mapstructure:"categories"`
	BlacklistKeywords []string          `yaml:"blacklist_keywords" mapstructure:"blacklist_keywords"`
	MinDelayMS        int               `yaml:"min_delay_ms" mapstructure:"min_delay_ms"`
	MaxDelayMS        int               `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	TimeoutSecs       int               `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LidlConfig configures the Lidl offers fetcher.
type LidlConfig struct {
	OffersURL   string `yaml:"offers_url" mapstructure:"offers_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// TranslateConfig configures the batch translator.
type TranslateConfig struct {
	Provider     string `yaml:"provider" mapstructure:"provider"`
	SourceLang   string `yaml:"source_lang" mapstructure:"source_lang"`
	TargetLang   string `yaml:"target_lang" mapstructure:"target_lang"`
	BatchSize    int    `yaml:"batch_size" mapstructure:"batch_size"`
	PauseMS      int    `yaml:"pause_ms" mapstructure:"pause_ms"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	AnthropicKey string `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	Model        string `yaml:"model" mapstructure:"model"`
}

// MemoryConfig configures the persisted translation memory.
type MemoryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MappingConfig configures the purchase mapping engine.
type MappingConfig struct {
	Threshold     int    `yaml:"threshold" mapstructure:"threshold"`
	MaxCandidates int    `yaml:"max_candidates" mapstructure:"max_candidates"`
	StoreLabel    string `yaml:"store_label" mapstructure:"store_label"`
}

// LedgerConfig configures the purchase ledger backend.
type LedgerConfig struct {
	Backend         string `yaml:"backend" mapstructure:"backend"`
	SpreadsheetID   string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	Tab             string `yaml:"tab" mapstructure:"tab"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	XLSXPath        string `yaml:"xlsx_path" mapstructure:"xlsx_path"`
}

// ExportConfig configures the per-run CSV exports.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the read-only data API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// defaultCategories is the Albert Heijn root taxonomy, slug to taxonomy id.
func defaultCategories() map[string]string {
	return map[string]string{
		"vegetarisch-vegan-en-plantaardig": "20128",
		"groente-aardappelen":              "6401",
		"fruit-verse-sappen":               "20885",
		"maaltijden-salades":               "1301",
		"vlees":                            "9344",
		"vis":                              "1651",
		"vleeswaren":                       "5481",
		"kaas":                             "1192",
		"zuivel-eieren":                    "1730",
		"bakkerij":                         "1355",
		"glutenvrij":                       "4246",
		"borrel-chips-snacks":              "20824",
		"pasta-rijst-wereldkeuken":         "1796",
		"soepen-sauzen-kruiden-olie":       "6409",
		"koek-snoep-chocolade":             "20129",
		"ontbijtgranen-beleg":              "6405",
		"tussendoortjes":                   "2457",
		"diepvries":                        "5881",
		"koffie-thee":                      "1043",
		"frisdrank-sappen-water":           "20130",
		"bier-wijn-aperitieven":            "6406",
		"drogisterij":                      "1045",
		"gezondheid-en-sport":              "11717",
		"huishouden":                       "1165",
		"koken-tafelen-vrije-tijd":         "1057",
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GROCERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "grocery.db")
	v.SetDefault("albert_heijn.base_url", "https://www.ah.nl")
	v.SetDefault("albert_heijn.page_size", 36)
	v.SetDefault("albert_heijn.categories", defaultCategories())
	v.SetDefault("albert_heijn.blacklist_keywords", []string{"baby", "kind", "huisdier", "dier"})
	v.SetDefault("albert_heijn.min_delay_ms", 600)
	v.SetDefault("albert_heijn.max_delay_ms", 1200)
	v.SetDefault("albert_heijn.timeout_secs", 15)
	v.SetDefault("lidl.offers_url", "https://www.lidl.nl/c/aanbiedingen/a10008785")
	v.SetDefault("lidl.timeout_secs", 30)
	v.SetDefault("translate.provider", "google")
	v.SetDefault("translate.source_lang", "nl")
	v.SetDefault("translate.target_lang", "en")
	v.SetDefault("translate.batch_size", 50)
	v.SetDefault("translate.pause_ms", 200)
	v.SetDefault("translate.model", "claude-haiku-4-5-20251001")
	v.SetDefault("memory.path", "product_translation_memory.csv")
	v.SetDefault("mapping.threshold", 85)
	v.SetDefault("mapping.max_candidates", 3)
	v.SetDefault("mapping.store_label", "albert_heijn")
	v.SetDefault("ledger.backend", "sheets")
	v.SetDefault("ledger.tab", "Raw")
	v.SetDefault("ledger.credentials_file", "grocery_tracker.json")
	v.SetDefault("export.dir", ".")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a given command needs are present
// and sane. Modes: scrape, translate, map, serve.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "scrape":
		if c.AH.PageSize <= 0 {
			problems = append(problems, "albert_heijn.page_size must be > 0")
		}
		if len(c.AH.Categories) == 0 {
			problems = append(problems, "albert_heijn.categories must not be empty")
		}
		if c.AH.MinDelayMS > c.AH.MaxDelayMS {
			problems = append(problems, "albert_heijn.min_delay_ms must be <= max_delay_ms")
		}
	case "translate":
		if c.Translate.BatchSize <= 0 {
			problems = append(problems, "translate.batch_size must be > 0")
		}
		if c.Translate.Provider == "anthropic" && c.Translate.AnthropicKey == "" {
			problems = append(problems, "translate.anthropic_key is required for the anthropic provider")
		}
		if c.Memory.Path == "" {
			problems = append(problems, "memory.path is required")
		}
	case "map":
		if c.Mapping.Threshold < 0 || c.Mapping.Threshold > 100 {
			problems = append(problems, "mapping.threshold must be between 0 and 100")
		}
		if c.Mapping.MaxCandidates <= 0 {
			problems = append(problems, "mapping.max_candidates must be > 0")
		}
		switch c.Ledger.Backend {
		case "sheets":
			if c.Ledger.SpreadsheetID == "" {
				problems = append(problems, "ledger.spreadsheet_id is required for the sheets backend")
			}
			if c.Ledger.CredentialsFile == "" {
				problems = append(problems, "ledger.credentials_file is required for the sheets backend")
			}
		case "xlsx":
			if c.Ledger.XLSXPath == "" {
				problems = append(problems, "ledger.xlsx_path is required for the xlsx backend")
			}
		default:
			problems = append(problems, "ledger.backend must be sheets or xlsx")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
