package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the verification call relay configuration, parsed from the
// environment. Note: .env file is loaded in main.go for local development
// using godotenv.Load().
type Config struct {
	Port       string `env:"PORT" envDefault:"3000"`
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"*"`
	AppEnv     string `env:"APP_ENV" envDefault:"development"`

	// Retell configuration
	RetellAPIKey     string `env:"RETELL_API_KEY"`
	RetellAgentID    string `env:"RETELL_AGENT_ID"`
	RetellFromNumber string `env:"RETELL_FROM_NUMBER"`
	RetellBaseURL    string `env:"RETELL_API_BASE_URL" envDefault:"https://api.retellai.com"`

	// Make.com webhook for spreadsheet storage. Forwarding is disabled when empty.
	MakeHookURL string `env:"MAKE_HOOK_URL"`

	// Verbose raw-payload logging for inbound webhooks
	DebugWebhook bool `env:"DEBUG_WEBHOOK" envDefault:"false"`

	// Country code assumed for bare 10-digit phone numbers
	DefaultCountryCode string `env:"DEFAULT_COUNTRY_CODE" envDefault:"+1"`

	// Mismatch thresholds for the transcript heuristic. Answers at or below
	// these lengths are treated as noise rather than a mismatch.
	NameMatchMinLen  int `env:"NAME_MATCH_MIN_LEN" envDefault:"2"`
	PhoneMatchMinLen int `env:"PHONE_MATCH_MIN_LEN" envDefault:"5"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}
	return cfg, nil
}

// ValidateForCalls checks the keys required to place outbound calls. The
// server still starts without them so the webhook surface stays available;
// the trigger endpoint reports the missing key on first use.
func (c *Config) ValidateForCalls() error {
	if c.RetellAPIKey == "" {
		return fmt.Errorf("RETELL_API_KEY is not configured")
	}
	if c.RetellAgentID == "" {
		return fmt.Errorf("RETELL_AGENT_ID is not configured")
	}
	return nil
}
