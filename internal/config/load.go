package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FIELDSIZE_CATALOG_DSN.
const EnvPrefix = "FIELDSIZE"

// Defaults applied before the file is read.
const (
	DefaultCopies        = 1
	DefaultChannelBuffer = 1024
	DefaultCacheSize     = 256
)

// Load reads a JSON or YAML run file (chosen by extension) and applies
// FIELDSIZE_* environment overrides.
//
// Keys are case-insensitive; map keys inside parser options are lower-cased
// on load.
func Load(path string) (Pipeline, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Pipeline{}, fmt.Errorf("read config: %w", err)
	}

	var p Pipeline
	if err := v.Unmarshal(&p); err != nil {
		return Pipeline{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	return p, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.kind", "file")
	v.SetDefault("source.http.timeout", "30s")
	v.SetDefault("source.http.max_retries", 3)
	v.SetDefault("parser.kind", "csv")
	v.SetDefault("catalog.kind", "")
	v.SetDefault("catalog.dsn", "")
	v.SetDefault("catalog.schema", "")
	v.SetDefault("catalog.shared", false)
	v.SetDefault("catalog.cache_size", DefaultCacheSize)
	v.SetDefault("catalog.missing_column", "zero")
	v.SetDefault("step.error_handling", false)
	v.SetDefault("sinks.output", "-")
	v.SetDefault("sinks.errors", "")
	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.datadog_addr", "")
	v.SetDefault("runtime.copies", DefaultCopies)
	v.SetDefault("runtime.channel_buffer", DefaultChannelBuffer)
}
