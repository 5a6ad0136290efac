package identity

import (
	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// EnvConfig is the environment-backed implementation of Config. Values
// are read once at startup; the struct is treated as immutable after
// LoadConfigFromEnv returns.
type EnvConfig struct {
	SigningKey      string   `env:"IDENTITY_SIGNING_KEY"`
	TokenExpiration int      `env:"IDENTITY_TOKEN_EXPIRATION" envDefault:"30"`
	Issuer          string   `env:"IDENTITY_TOKEN_ISSUER" envDefault:"go-identity"`
	Audience        []string `env:"IDENTITY_TOKEN_AUDIENCE" envSeparator:","`

	SMTPHost     string `env:"IDENTITY_SMTP_HOST"`
	SMTPPort     int    `env:"IDENTITY_SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"IDENTITY_SMTP_USERNAME"`
	SMTPPassword string `env:"IDENTITY_SMTP_PASSWORD"`
	SMTPFrom     string `env:"IDENTITY_SMTP_FROM"`
}

var _ Config = (*EnvConfig)(nil)

// LoadConfigFromEnv parses configuration from the environment. A missing
// signing key is an error since tokens could never be validated across
// restarts.
func LoadConfigFromEnv() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to parse environment configuration")
	}

	if cfg.SigningKey == "" {
		return nil, goerrors.New("IDENTITY_SIGNING_KEY is required", goerrors.CategoryOperation)
	}

	return cfg, nil
}

func (c *EnvConfig) GetSigningKey() string { return c.SigningKey }

// GetTokenExpiration is the token lifetime in minutes
func (c *EnvConfig) GetTokenExpiration() int { return c.TokenExpiration }

func (c *EnvConfig) GetIssuer() string { return c.Issuer }

func (c *EnvConfig) GetAudience() []string { return c.Audience }

// Notifier builds the mail transport described by the SMTP fields. With
// no host configured delivery is a no-op, which keeps local development
// working without a mail server.
func (c *EnvConfig) Notifier() Notifier {
	if c.SMTPHost == "" {
		return discardNotifier{}
	}
	return NewSMTPNotifier(c.SMTPHost, c.SMTPPort, c.SMTPUsername, c.SMTPPassword, c.SMTPFrom)
}
