package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Settings holds top-level engine configuration: which embedding/reranker/
// scout backends to construct and how to reach the database. Per-backend
// provider options live under ProviderConfig's Options map.
type Settings struct {
	Embedding ProviderConfig `mapstructure:"embedding"`

	Reranker struct {
		ModelName string `mapstructure:"model_name"`
	} `mapstructure:"reranker"`

	Scout struct {
		Threshold float64 `mapstructure:"threshold"`
		ModelName string  `mapstructure:"model_name"`
	} `mapstructure:"scout"`

	DatabaseURI string `mapstructure:"database_uri"`
	Env         string `mapstructure:"env"`

	Observability struct {
		// TraceExporter selects how spans are exported: "otlp" (batched to
		// OTELEndpoint over gRPC) or "stdout" (pretty-printed, for local
		// runs with no collector). Spans are created either way; this only
		// controls where they're shipped.
		TraceExporter string `mapstructure:"trace_exporter"`
		// OTELEndpoint is the OTLP/gRPC collector address, required when
		// TraceExporter is "otlp".
		OTELEndpoint string `mapstructure:"otel_endpoint"`
	} `mapstructure:"observability"`
}

// defaultConfigPathEnv names the environment variable that overrides where
// LoadSettings looks for a YAML config file.
const defaultConfigPathEnv = "SEARCH_CONFIG_PATH"

// LoadSettings reads Settings with the precedence chain defaults < YAML file
// < environment variables, searching for the YAML file at the path named by
// the SEARCH_CONFIG_PATH environment variable (default "search_config.yaml").
// A missing file leaves the defaults in place. configPaths are added as
// viper search paths, but because the file path is always set explicitly
// they do not change which file is read.
func LoadSettings(configPaths ...string) (Settings, error) {
	var s Settings

	v := viper.New()

	v.SetDefault("reranker.model_name", "length-baseline")
	v.SetDefault("scout.threshold", 0.4)
	v.SetDefault("scout.model_name", "term-overlap-baseline")
	v.SetDefault("env", "development")
	v.SetDefault("database_uri", "")
	v.SetDefault("embedding.provider", "")
	v.SetDefault("embedding.model", "")
	v.SetDefault("observability.trace_exporter", "stdout")
	v.SetDefault("observability.otel_endpoint", "")

	configFile := defaultConfigPath()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return s, fmt.Errorf("config: read settings file: %w", err)
		}
	}

	// viper joins envPrefix + "_" + key; using "APP_" here yields the
	// documented "APP__KEY" double-underscore env var shape.
	v.SetEnvPrefix("APP_")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("config: decode settings: %w", err)
	}

	return s, nil
}

func defaultConfigPath() string {
	if path := os.Getenv(defaultConfigPathEnv); path != "" {
		return path
	}
	return "search_config.yaml"
}
