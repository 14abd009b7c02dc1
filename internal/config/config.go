package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/warebill/warebill/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Billing    BillingConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// BillingConfig carries engine defaults used when a project does not
// configure its own values
type BillingConfig struct {
	// DefaultTaxRate is applied when the project has no tax rate configured
	DefaultTaxRate string
	// DueDays is added to the period end to derive an invoice due date
	DueDays int
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/warebill")

	v.SetEnvPrefix("WAREBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Configuration) applyDefaults() {
	if c.Billing.DefaultTaxRate == "" {
		c.Billing.DefaultTaxRate = "0.10"
	}
	if c.Billing.DueDays == 0 {
		c.Billing.DueDays = 30
	}
}

func (c Configuration) Validate() error {
	if _, err := decimal.NewFromString(c.Billing.DefaultTaxRate); err != nil {
		return fmt.Errorf("billing.defaulttaxrate is not a valid decimal: %w", err)
	}
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultTaxRate returns the configured default tax rate as a decimal.
// Validate guarantees the string parses.
func (c Configuration) GetDefaultTaxRate() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.Billing.DefaultTaxRate)
	return rate
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Billing: BillingConfig{
			DefaultTaxRate: "0.10",
			DueDays:        30,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
