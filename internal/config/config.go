package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Database DatabasesConfig `mapstructure:"database"`
	Logging  LoggingConfig   `mapstructure:"logging"`
	Review   ReviewConfig    `mapstructure:"review"`
	Rules    RulesConfig     `mapstructure:"rules"`
	Alerting AlertingConfig  `mapstructure:"alerting"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Hostname     string        `mapstructure:"hostname"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`
}

// DatabasesConfig holds all database configurations
type DatabasesConfig struct {
	Intake DatabaseConfig `mapstructure:"intake"`
}

// DatabaseConfig holds individual database configuration
type DatabaseConfig struct {
	Type            string        `mapstructure:"type"`
	Hostname        string        `mapstructure:"hostname"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ReviewConfig holds review queue and claim configuration
type ReviewConfig struct {
	ClaimTimeout          time.Duration `mapstructure:"claim_timeout"`
	ClaimWarningThreshold time.Duration `mapstructure:"claim_warning_threshold"`
	SweepInterval         time.Duration `mapstructure:"sweep_interval"`
	SLAMaxWait            time.Duration `mapstructure:"sla_max_wait"`
	SLACheckInterval      time.Duration `mapstructure:"sla_check_interval"`
	CertificateValidity   time.Duration `mapstructure:"certificate_validity"`
	ExpiryCheckInterval   time.Duration `mapstructure:"expiry_check_interval"`
}

// RulesConfig holds safety rule set configuration
type RulesConfig struct {
	File  string `mapstructure:"file"`
	Watch bool   `mapstructure:"watch"`
}

// AlertingConfig holds queue alert delivery configuration
type AlertingConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	WebhookURL    string        `mapstructure:"webhook_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
}

var globalConfig *Config

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
		v.AddConfigPath(".")
	}

	// Read from environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("INTAKE_REVIEW")

	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 15*time.Second)
	v.SetDefault("server.idleTimeout", 60*time.Second)

	// Defaults for the review engine knobs
	v.SetDefault("review.claim_timeout", 30*time.Minute)
	v.SetDefault("review.claim_warning_threshold", 20*time.Minute)
	v.SetDefault("review.sweep_interval", 5*time.Minute)
	v.SetDefault("review.sla_max_wait", 2*time.Hour)
	v.SetDefault("review.sla_check_interval", time.Minute)
	v.SetDefault("review.certificate_validity", 90*24*time.Hour)
	v.SetDefault("review.expiry_check_interval", time.Hour)
	v.SetDefault("database.intake.retry_attempts", 3)
	v.SetDefault("database.intake.retry_backoff", 100*time.Millisecond)

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	globalConfig = &config
	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Intake.Hostname == "" {
		return fmt.Errorf("database hostname is required")
	}

	if config.Database.Intake.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if config.Review.ClaimTimeout <= 0 {
		return fmt.Errorf("claim timeout must be positive")
	}

	if config.Review.ClaimWarningThreshold <= 0 ||
		config.Review.ClaimWarningThreshold >= config.Review.ClaimTimeout {
		return fmt.Errorf("claim warning threshold must be positive and below the claim timeout")
	}

	if config.Review.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}

	if config.Review.SLAMaxWait <= 0 {
		return fmt.Errorf("sla max wait must be positive")
	}

	if config.Review.SLACheckInterval <= 0 {
		return fmt.Errorf("sla check interval must be positive")
	}

	if config.Review.CertificateValidity <= 0 {
		return fmt.Errorf("certificate validity must be positive")
	}

	if config.Rules.File == "" {
		return fmt.Errorf("safety rules file is required")
	}

	if config.Alerting.Enabled && config.Alerting.WebhookURL == "" {
		return fmt.Errorf("alert webhook URL is required when alerting is enabled")
	}

	return nil
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// SetGlobal sets the global configuration (for testing purposes)
func SetGlobal(cfg *Config) {
	globalConfig = cfg
}

// GetDSN returns the database connection string
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		d.User,
		d.Password,
		d.Hostname,
		d.Port,
		d.Database,
	)
}

// GetServerAddress returns the server address in host:port format
func (s *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", s.Hostname, s.Port)
}
