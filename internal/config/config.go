// Package config loads service configuration from file and
// environment with viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rezonia/facturador/internal/model"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Issuer   IssuerConfig   `mapstructure:"issuer"`
	Signing  SigningConfig  `mapstructure:"signing"`
	SRI      SRIConfig      `mapstructure:"sri"`
}

type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	Debug        bool          `mapstructure:"debug"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type IssuerConfig struct {
	RUC                  string `mapstructure:"ruc"`
	LegalName            string `mapstructure:"legal_name"`
	TradeName            string `mapstructure:"trade_name"`
	HeadOfficeAddress    string `mapstructure:"head_office_address"`
	EstablishmentAddress string `mapstructure:"establishment_address"`
	Establishment        string `mapstructure:"establishment"`
	EmissionPoint        string `mapstructure:"emission_point"`
	Environment          string `mapstructure:"environment"`
	AccountingRequired   bool   `mapstructure:"accounting_required"`
	Timezone             string `mapstructure:"timezone"`
}

type SigningConfig struct {
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

type SRIConfig struct {
	// ReceptionURL and AuthorizationURL override the environment's
	// default hosts when set (tests, proxies).
	ReceptionURL     string        `mapstructure:"reception_url"`
	AuthorizationURL string        `mapstructure:"authorization_url"`
	PollAttempts     int           `mapstructure:"poll_attempts"`
	PollDelay        time.Duration `mapstructure:"poll_delay"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

// envKeys lists every configuration key. AutomaticEnv only resolves
// keys viper already knows about, so keys without a default must be
// bound here or FACTURADOR_* variables for them are silently ignored.
var envKeys = []string{
	"server.address",
	"server.debug",
	"server.read_timeout",
	"server.write_timeout",
	"database.dsn",
	"issuer.ruc",
	"issuer.legal_name",
	"issuer.trade_name",
	"issuer.head_office_address",
	"issuer.establishment_address",
	"issuer.establishment",
	"issuer.emission_point",
	"issuer.environment",
	"issuer.accounting_required",
	"issuer.timezone",
	"signing.cert_file",
	"signing.key_file",
	"sri.reception_url",
	"sri.authorization_url",
	"sri.poll_attempts",
	"sri.poll_delay",
	"sri.request_timeout",
}

// Load reads configuration from the optional file path and the
// FACTURADOR_* environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("facturador")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("issuer.environment", string(model.EnvTest))
	v.SetDefault("issuer.timezone", "America/Guayaquil")
	v.SetDefault("sri.poll_attempts", 10)
	v.SetDefault("sri.poll_delay", 2500*time.Millisecond)
	v.SetDefault("sri.request_timeout", 30*time.Second)
}

func (c *Config) validate() error {
	if c.Issuer.RUC != "" && len(c.Issuer.RUC) != 13 {
		return fmt.Errorf("issuer.ruc must be 13 digits, got %q", c.Issuer.RUC)
	}
	env := model.Environment(c.Issuer.Environment)
	if env != model.EnvTest && env != model.EnvProduction {
		return fmt.Errorf("issuer.environment must be %q or %q", model.EnvTest, model.EnvProduction)
	}
	if c.SRI.PollAttempts < 1 {
		return fmt.Errorf("sri.poll_attempts must be at least 1")
	}
	if c.SRI.PollDelay <= 0 {
		return fmt.Errorf("sri.poll_delay must be positive")
	}
	return nil
}

// ModelIssuer converts the issuer section into the domain shape.
func (c *Config) ModelIssuer() model.Issuer {
	return model.Issuer{
		RUC:                  c.Issuer.RUC,
		LegalName:            c.Issuer.LegalName,
		TradeName:            c.Issuer.TradeName,
		HeadOfficeAddress:    c.Issuer.HeadOfficeAddress,
		EstablishmentAddress: c.Issuer.EstablishmentAddress,
		Establishment:        c.Issuer.Establishment,
		EmissionPoint:        c.Issuer.EmissionPoint,
		Environment:          model.Environment(c.Issuer.Environment),
		AccountingRequired:   c.Issuer.AccountingRequired,
	}
}

// Location resolves the issuer's time zone for the same-day
// transmission guard, falling back to local time.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Issuer.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
