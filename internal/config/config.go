// Package config loads application configuration from file and
// environment and initializes the global logger.
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
	Trust   TrustConfig   `yaml:"trust" mapstructure:"trust"`
	Schema  SchemaConfig  `yaml:"schema" mapstructure:"schema"`
	Matcher MatcherConfig `yaml:"matcher" mapstructure:"matcher"`
	Merge   MergeConfig   `yaml:"merge" mapstructure:"merge"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// TrustConfig locates the per-source trust catalog.
type TrustConfig struct {
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"`
}

// SchemaConfig locates the field-group schema. An empty path means the
// built-in default classification.
type SchemaConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MatcherConfig tunes the matching cascade.
type MatcherConfig struct {
	FuzzyThreshold int    `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
	GeoPrecision   int    `yaml:"geo_precision" mapstructure:"geo_precision"`
	NameField      string `yaml:"name_field" mapstructure:"name_field"`
	LatField       string `yaml:"lat_field" mapstructure:"lat_field"`
	LngField       string `yaml:"lng_field" mapstructure:"lng_field"`
}

// MergeConfig tunes merge execution.
type MergeConfig struct {
	// Workers bounds the fan-out across independent entity groups.
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP resolve server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESOLVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("trust.catalog_path", "trust.yaml")
	v.SetDefault("schema.path", "")
	v.SetDefault("matcher.fuzzy_threshold", 85)
	v.SetDefault("matcher.geo_precision", 3)
	v.SetDefault("matcher.name_field", "name")
	v.SetDefault("matcher.lat_field", "latitude")
	v.SetDefault("matcher.lng_field", "longitude")
	v.SetDefault("merge.workers", 4)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "resolve.db")
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
