// Package config provides zomecall configuration loaded from environment variables.
package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/morezero/zomecall/pkg/conductor"
	"github.com/morezero/zomecall/pkg/profiles"
)

const logPrefix = "config:LoadConfig"

// Config holds zomecall configuration.
type Config struct {
	// Conductor app interface: ws://, wss:// or a NATS bridge at nats://.
	ConductorURL     string        `envconfig:"CONDUCTOR_URL" default:"ws://localhost:8888"`
	ServiceName      string        `envconfig:"SERVICE_NAME" default:"zomecall"`
	HandshakeTimeout time.Duration `envconfig:"HANDSHAKE_TIMEOUT" default:"10s"`
	ConductorSubject string        `envconfig:"CONDUCTOR_SUBJECT" default:"holochain.app.v1"`

	// Call target
	InstalledAppID string `envconfig:"INSTALLED_APP_ID" default:"test-app"`
	ZomeName       string `envconfig:"ZOME_NAME" default:"squareroots"`
	FnName         string `envconfig:"FN_NAME" default:"square_root"`
	ZomePayload    string `envconfig:"ZOME_PAYLOAD" default:"{\"number\":7}"`
	CapSecret      string `envconfig:"CAP_SECRET"`

	// Profiles (empty PROFILE = use the call target above)
	Profile      string `envconfig:"PROFILE"`
	ProfilesFile string `envconfig:"PROFILES_FILE"`

	// Outcome reporting
	OutcomeNATSURL string `envconfig:"OUTCOME_NATS_URL"`
	OutcomeSubject string `envconfig:"OUTCOME_SUBJECT" default:"zomecall.outcome"`
	MetricsFile    string `envconfig:"METRICS_TEXTFILE"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ApplyProfile replaces the call target with the one named by p.
func (c *Config) ApplyProfile(p *profiles.Profile) {
	c.InstalledAppID = p.AppID
	c.ZomeName = p.Zome
	c.FnName = p.Fn
	c.ZomePayload = p.PayloadJSON()
}

// ValidateForCall checks required config for performing a zome call.
func (c *Config) ValidateForCall() error {
	if err := c.ValidateForConnect(); err != nil {
		return err
	}
	if c.InstalledAppID == "" {
		return fmt.Errorf("%s - INSTALLED_APP_ID is required", logPrefix)
	}
	if c.ZomeName == "" || c.FnName == "" {
		return fmt.Errorf("%s - ZOME_NAME and FN_NAME are required", logPrefix)
	}
	if _, err := c.CapSecretBytes(); err != nil {
		return err
	}
	return nil
}

// ValidateForConnect checks the conductor address and timeout.
func (c *Config) ValidateForConnect() error {
	if c.ConductorURL == "" {
		return fmt.Errorf("%s - CONDUCTOR_URL is required", logPrefix)
	}
	u, err := url.Parse(c.ConductorURL)
	if err != nil {
		return fmt.Errorf("%s - CONDUCTOR_URL is invalid: %w", logPrefix, err)
	}
	switch u.Scheme {
	case "ws", "wss", "nats", "tls":
	default:
		return fmt.Errorf("%s - CONDUCTOR_URL scheme %q is not supported (want ws, wss or nats)", logPrefix, u.Scheme)
	}
	if c.HandshakeTimeout < 0 {
		return fmt.Errorf("%s - HANDSHAKE_TIMEOUT must not be negative", logPrefix)
	}
	return nil
}

// CapSecretBytes decodes CAP_SECRET. An empty secret means an unrestricted call.
func (c *Config) CapSecretBytes() (conductor.CapSecret, error) {
	if c.CapSecret == "" {
		return nil, nil
	}
	secret, err := base64.StdEncoding.DecodeString(c.CapSecret)
	if err != nil {
		return nil, fmt.Errorf("%s - CAP_SECRET is not valid base64: %w", logPrefix, err)
	}
	if len(secret) != conductor.CapSecretSize {
		return nil, fmt.Errorf("%s - CAP_SECRET must be %d bytes, got %d", logPrefix, conductor.CapSecretSize, len(secret))
	}
	return secret, nil
}
