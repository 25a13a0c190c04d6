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
	DealMachine DealMachineConfig `yaml:"dealmachine" mapstructure:"dealmachine"`
	Proxy       ProxyConfig       `yaml:"proxy" mapstructure:"proxy"`
	Audit       AuditConfig       `yaml:"audit" mapstructure:"audit"`
	Export      ExportConfig      `yaml:"export" mapstructure:"export"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Monitoring  MonitoringConfig  `yaml:"monitoring" mapstructure:"monitoring"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// DealMachineConfig configures access to the DealMachine lead listing.
type DealMachineConfig struct {
	Token        string  `yaml:"token" mapstructure:"token"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	PageSize     int     `yaml:"page_size" mapstructure:"page_size"`
	PageDelayMs  int     `yaml:"page_delay_ms" mapstructure:"page_delay_ms"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"` // 0 disables
}

// ProxyConfig points the scraper at a running lead proxy instead of the
// DealMachine API. Empty URL means fetch directly.
type ProxyConfig struct {
	URL       string `yaml:"url" mapstructure:"url"`
	AuthToken string `yaml:"auth_token" mapstructure:"auth_token"`
}

// AuditConfig configures the scrape log endpoint.
type AuditConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// ExportConfig configures the export artifact and its delivery.
type ExportConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	Format      string `yaml:"format" mapstructure:"format"`
	FTPURL      string `yaml:"ftp_url" mapstructure:"ftp_url"`
	FTPUser     string `yaml:"ftp_user" mapstructure:"ftp_user"`
	FTPPassword string `yaml:"ftp_password" mapstructure:"ftp_password"`
}

// StoreConfig configures the scrape log database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server. When AuthToken is set, the
// invocation endpoint only accepts that bearer token.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AuthToken      string   `yaml:"auth_token" mapstructure:"auth_token"`
}

// MonitoringConfig configures scrape failure alerting.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	ConsecutiveFailures  int     `yaml:"consecutive_failures" mapstructure:"consecutive_failures"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
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
	v.SetEnvPrefix("DEALMACHINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("dealmachine.token", "DEALMACHINE_TOKEN", "DEALMACHINE_DEALMACHINE_TOKEN")

	// Defaults
	v.SetDefault("dealmachine.token", "")
	v.SetDefault("dealmachine.base_url", "https://api.dealmachine.com")
	v.SetDefault("dealmachine.page_size", 100)
	v.SetDefault("dealmachine.page_delay_ms", 300)
	v.SetDefault("dealmachine.timeout_secs", 30)
	v.SetDefault("dealmachine.rate_limit_rps", 0)
	v.SetDefault("proxy.url", "")
	v.SetDefault("proxy.auth_token", "")
	v.SetDefault("audit.url", "")
	v.SetDefault("audit.timeout_secs", 10)
	v.SetDefault("audit.max_attempts", 2)
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.format", "csv")
	v.SetDefault("export.ftp_url", "")
	v.SetDefault("export.ftp_user", "anonymous")
	v.SetDefault("export.ftp_password", "anonymous@")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "dealmachine.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*", "https://app.dealmachine.com"})
	v.SetDefault("server.auth_token", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.consecutive_failures", 3)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)
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

// Validate checks the fields a given command mode depends on. Modes are
// "scrape", "serve" and "store".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "scrape":
		if c.DealMachine.PageSize <= 0 {
			errs = append(errs, "dealmachine.page_size must be > 0")
		}
		if c.DealMachine.PageDelayMs < 0 {
			errs = append(errs, "dealmachine.page_delay_ms must be >= 0")
		}
		if c.DealMachine.RateLimitRPS < 0 {
			errs = append(errs, "dealmachine.rate_limit_rps must be >= 0")
		}
		if c.Proxy.URL == "" && c.DealMachine.BaseURL == "" {
			errs = append(errs, "dealmachine.base_url or proxy.url is required")
		}
		switch c.Export.Format {
		case "csv", "xlsx":
		default:
			errs = append(errs, "export.format must be csv or xlsx")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.DealMachine.BaseURL == "" {
			errs = append(errs, "dealmachine.base_url is required")
		}
		if c.DealMachine.RateLimitRPS < 0 {
			errs = append(errs, "dealmachine.rate_limit_rps must be >= 0")
		}
		errs = append(errs, c.storeErrors()...)
	case "store":
		errs = append(errs, c.storeErrors()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) storeErrors() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
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
