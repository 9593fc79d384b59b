// Package config resolves otell's configuration with precedence
// defaults -> TOML file -> OTELL_* environment -> CLI flags, generalized
// from the teacher's viper-based loader.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every resolved setting otell needs to run.
type Config struct {
	DBPath string `mapstructure:"db_path"`

	OTLPGRPCAddr    string `mapstructure:"otlp_grpc_addr"`
	OTLPHTTPAddr    string `mapstructure:"otlp_http_addr"`
	QueryTCPAddr    string `mapstructure:"query_tcp_addr"`
	QueryHTTPAddr   string `mapstructure:"query_http_addr"`
	QueryUDSPath    string `mapstructure:"query_uds_path"`

	RetentionTTL        time.Duration `mapstructure:"-"`
	RetentionTTLRaw     string        `mapstructure:"retention_ttl"`
	RetentionMaxBytes   int64         `mapstructure:"-"`
	RetentionMaxBytesRaw string       `mapstructure:"retention_max_bytes"`

	SelfObserve string `mapstructure:"self_observe"` // off|store|both
	MetricsAddr string `mapstructure:"metrics_addr"`

	ForwardOTLPEndpoint    string   `mapstructure:"forward_otlp_endpoint"`
	ForwardOTLPProtocol    string   `mapstructure:"forward_otlp_protocol"` // grpc|http
	ForwardOTLPCompression string   `mapstructure:"forward_otlp_compression"`
	ForwardOTLPHeaders     []string      `mapstructure:"forward_otlp_headers"`
	ForwardOTLPTimeout     time.Duration `mapstructure:"-"`
	ForwardOTLPTimeoutRaw  string        `mapstructure:"forward_otlp_timeout"`

	OTelExporterEndpoint string `mapstructure:"otel_exporter_otlp_endpoint"`
	OTelExporterProtocol string `mapstructure:"otel_exporter_otlp_protocol"`

	WriteBatchSize int    `mapstructure:"write_batch_size"`
	WriteFlushMs   int    `mapstructure:"write_flush_ms"`
	EnqueueTimeout time.Duration `mapstructure:"-"`
	EnqueueTimeoutRaw string     `mapstructure:"enqueue_timeout"`
}

// Load resolves configuration from defaults, an optional TOML file, OTELL_*
// environment variables, and (if non-nil) CLI flags bound to the same keys.
func Load(cfgFileFlag string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	cfgFile := cfgFileFlag
	if env := os.Getenv("OTELL_CONFIG"); cfgFile == "" && env != "" {
		cfgFile = env
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if dir := defaultConfigDir(); dir != "" {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("OTELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if bindErr != nil {
				return
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("config: bind flags: %w", bindErr)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	var err error
	if cfg.RetentionTTL, err = ParseHumanDuration(cfg.RetentionTTLRaw); err != nil {
		return nil, fmt.Errorf("config: retention_ttl: %w", err)
	}
	if cfg.RetentionMaxBytes, err = ParseBytes(cfg.RetentionMaxBytesRaw); err != nil {
		return nil, fmt.Errorf("config: retention_max_bytes: %w", err)
	}
	if cfg.ForwardOTLPTimeoutRaw != "" {
		if cfg.ForwardOTLPTimeout, err = ParseHumanDuration(cfg.ForwardOTLPTimeoutRaw); err != nil {
			return nil, fmt.Errorf("config: forward_otlp_timeout: %w", err)
		}
	}
	if cfg.EnqueueTimeout, err = ParseHumanDuration(cfg.EnqueueTimeoutRaw); err != nil {
		return nil, fmt.Errorf("config: enqueue_timeout: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "otell")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "otell")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "otell.duckdb")

	v.SetDefault("otlp_grpc_addr", "127.0.0.1:4317")
	v.SetDefault("otlp_http_addr", "127.0.0.1:4318")
	v.SetDefault("query_tcp_addr", "127.0.0.1:1779")
	v.SetDefault("query_http_addr", "127.0.0.1:1778")
	v.SetDefault("query_uds_path", "")

	v.SetDefault("retention_ttl", "24h")
	v.SetDefault("retention_max_bytes", "2GiB")

	v.SetDefault("self_observe", "off")
	v.SetDefault("metrics_addr", "127.0.0.1:9464")

	v.SetDefault("forward_otlp_endpoint", "")
	v.SetDefault("forward_otlp_protocol", "grpc")
	v.SetDefault("forward_otlp_compression", "none")
	v.SetDefault("forward_otlp_timeout", "5s")

	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("otel_exporter_otlp_protocol", "grpc")

	v.SetDefault("write_batch_size", 2048)
	v.SetDefault("write_flush_ms", 200)
	v.SetDefault("enqueue_timeout", "2s")
}

func validate(cfg *Config) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	switch cfg.SelfObserve {
	case "off", "store", "both":
	default:
		return fmt.Errorf("self_observe must be one of off|store|both, got %q", cfg.SelfObserve)
	}
	if cfg.WriteBatchSize <= 0 {
		return fmt.Errorf("write_batch_size must be positive")
	}
	return nil
}
