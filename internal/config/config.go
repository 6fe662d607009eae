// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Target    TargetConfig    `mapstructure:"target" yaml:"target"`
	Wait      WaitConfig      `mapstructure:"wait" yaml:"wait"`
	Evidence  EvidenceConfig  `mapstructure:"evidence" yaml:"evidence"`
	Scenarios ScenariosConfig `mapstructure:"scenarios" yaml:"scenarios"`
	Run       RunConfig       `mapstructure:"run" yaml:"run"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names used for each log level on the console.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the Chromium instances spawned per scenario.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ReleaseTimeout    time.Duration `mapstructure:"release_timeout" yaml:"release_timeout"`
	Debug             bool          `mapstructure:"debug" yaml:"debug"`
}

// CredentialsConfig is an identifier/secret pair.
type CredentialsConfig struct {
	Identifier string `mapstructure:"identifier" yaml:"identifier"`
	Secret     string `mapstructure:"secret" yaml:"-"`
}

// AuthLocatorsConfig names the sign-in form elements as "strategy=value" locators.
type AuthLocatorsConfig struct {
	Identifier string `mapstructure:"identifier" yaml:"identifier"`
	Secret     string `mapstructure:"secret" yaml:"secret"`
	Submit     string `mapstructure:"submit" yaml:"submit"`
	Success    string `mapstructure:"success" yaml:"success"`
}

// TargetConfig describes the application under test.
type TargetConfig struct {
	BaseURL            string             `mapstructure:"base_url" yaml:"base_url"`
	SignInPath         string             `mapstructure:"signin_path" yaml:"signin_path"`
	Credentials        CredentialsConfig  `mapstructure:"credentials" yaml:"credentials"`
	InvalidCredentials CredentialsConfig  `mapstructure:"invalid_credentials" yaml:"invalid_credentials"`
	Locators           AuthLocatorsConfig `mapstructure:"locators" yaml:"locators"`
}

// WaitConfig tunes the condition polling shared by every wait step.
type WaitConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// EvidenceConfig controls where screenshots are written.
type EvidenceConfig struct {
	Dir      string `mapstructure:"dir" yaml:"dir"`
	Manifest string `mapstructure:"manifest" yaml:"manifest"`
}

// LoginScenarioConfig configures the invalid-then-valid login scenario.
type LoginScenarioConfig struct {
	RejectionIndicator string        `mapstructure:"rejection_indicator" yaml:"rejection_indicator"`
	Settle             time.Duration `mapstructure:"settle" yaml:"settle"`
	AssertRejected     bool          `mapstructure:"assert_rejected" yaml:"assert_rejected"`
}

// AdminScenarioConfig configures the authenticated admin navigation scenario.
type AdminScenarioConfig struct {
	Path           string        `mapstructure:"path" yaml:"path"`
	ReadyIndicator string        `mapstructure:"ready_indicator" yaml:"ready_indicator"`
	Settle         time.Duration `mapstructure:"settle" yaml:"settle"`
}

// CheckpointConfig is one entry of an ordered element-presence sequence.
type CheckpointConfig struct {
	Description string `mapstructure:"description" yaml:"description"`
	Locator     string `mapstructure:"locator" yaml:"locator"`
}

// ElementsScenarioConfig configures the multi-element presence scenario.
type ElementsScenarioConfig struct {
	Path        string             `mapstructure:"path" yaml:"path"`
	Checkpoints []CheckpointConfig `mapstructure:"checkpoints" yaml:"checkpoints"`
}

// ScenariosConfig groups per-scenario settings.
type ScenariosConfig struct {
	Login    LoginScenarioConfig    `mapstructure:"login" yaml:"login"`
	Admin    AdminScenarioConfig    `mapstructure:"admin" yaml:"admin"`
	Elements ElementsScenarioConfig `mapstructure:"elements" yaml:"elements"`
}

// RunConfig holds settings populated mostly from CLI flags for a single run.
type RunConfig struct {
	FailFast     bool   `mapstructure:"fail_fast" yaml:"fail_fast"`
	Report       string `mapstructure:"report" yaml:"report"`
	ReportFormat string `mapstructure:"report_format" yaml:"report_format"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "uiprobe")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.action_timeout", "10s")
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.release_timeout", "10s")
	v.SetDefault("browser.debug", false)

	// -- Target --
	v.SetDefault("target.base_url", "http://localhost:5174")
	v.SetDefault("target.signin_path", "/signin")
	v.SetDefault("target.credentials.identifier", "prueba2@gmail.com")
	v.SetDefault("target.credentials.secret", "12345678")
	v.SetDefault("target.invalid_credentials.identifier", "prueba_falsa@gmail.com")
	v.SetDefault("target.invalid_credentials.secret", "clave_invalida")
	v.SetDefault("target.locators.identifier", "name=email")
	v.SetDefault("target.locators.secret", "name=password")
	v.SetDefault("target.locators.submit", "partial_text=button:Iniciar sesión")
	v.SetDefault("target.locators.success", "tag=header")

	// -- Wait --
	v.SetDefault("wait.timeout", "10s")
	v.SetDefault("wait.poll_interval", "500ms")

	// -- Evidence --
	v.SetDefault("evidence.dir", ".")
	v.SetDefault("evidence.manifest", "")

	// -- Scenarios --
	v.SetDefault("scenarios.login.rejection_indicator", "xpath=//form//div[contains(@style,'color: red')]")
	v.SetDefault("scenarios.login.settle", "2s")
	v.SetDefault("scenarios.login.assert_rejected", false)
	v.SetDefault("scenarios.admin.path", "/admin")
	v.SetDefault("scenarios.admin.ready_indicator", "tag=aside")
	v.SetDefault("scenarios.admin.settle", "10s")
	v.SetDefault("scenarios.elements.path", "/admin/packages-management")
	v.SetDefault("scenarios.elements.checkpoints", []map[string]any{
		{"description": "header region", "locator": "tag=header"},
		{"description": "side navigation", "locator": "tag=aside"},
		{"description": "page heading", "locator": "partial_text=h1:Gestión de Paquetes"},
		{"description": "packages table", "locator": "tag=table"},
		{"description": "success action button", "locator": "css=button.bg-success-700"},
		{"description": "flex container", "locator": "xpath=//div[contains(@class,'flex')]"},
	})

	// -- Run --
	v.SetDefault("run.fail_fast", true)
	v.SetDefault("run.report", "")
	v.SetDefault("run.report_format", "json")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Secrets are commonly injected without the nested key prefix.
	_ = v.BindEnv("target.credentials.secret", "UIPROBE_PASSWORD", "UIPROBE_TARGET_CREDENTIALS_SECRET")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// YAML renders the configuration as a YAML document. Secrets are omitted.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("error encoding config: %w", err)
	}
	return out, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Target.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("target: %w", err))
	}
	if c.Wait.Timeout <= 0 {
		errs = append(errs, errors.New("wait.timeout must be a positive duration"))
	}
	if c.Wait.PollInterval <= 0 {
		errs = append(errs, errors.New("wait.poll_interval must be a positive duration"))
	}
	if c.Browser.ActionTimeout <= 0 {
		errs = append(errs, errors.New("browser.action_timeout must be a positive duration"))
	}
	if c.Browser.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("browser.navigation_timeout must be a positive duration"))
	}
	if c.Browser.WindowWidth < 0 || c.Browser.WindowHeight < 0 {
		errs = append(errs, errors.New("browser window dimensions cannot be negative"))
	}
	if c.Evidence.Dir == "" {
		errs = append(errs, errors.New("evidence.dir is required"))
	}
	if c.Run.ReportFormat != "json" && c.Run.ReportFormat != "text" {
		errs = append(errs, fmt.Errorf("run.report_format %q must be json or text", c.Run.ReportFormat))
	}
	if err := c.Scenarios.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scenarios: %w", err))
	}
	return errors.Join(errs...)
}

// Validate checks the target application settings.
func (t *TargetConfig) Validate() error {
	u, err := url.Parse(t.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url %q is not a valid URL: %w", t.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url %q must use http or https", t.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url %q has no host", t.BaseURL)
	}
	if !strings.HasPrefix(t.SignInPath, "/") {
		return fmt.Errorf("signin_path %q must start with '/'", t.SignInPath)
	}
	if t.Credentials.Identifier == "" || t.Credentials.Secret == "" {
		return errors.New("credentials.identifier and credentials.secret are required")
	}
	if t.Locators.Identifier == "" || t.Locators.Secret == "" || t.Locators.Submit == "" || t.Locators.Success == "" {
		return errors.New("locators.identifier, locators.secret, locators.submit and locators.success are required")
	}
	return nil
}

// Validate checks the per-scenario settings. Locator syntax is checked when
// the scenarios are built.
func (s *ScenariosConfig) Validate() error {
	if s.Login.Settle < 0 {
		return errors.New("login.settle cannot be negative")
	}
	if s.Admin.Settle < 0 {
		return errors.New("admin.settle cannot be negative")
	}
	if !strings.HasPrefix(s.Admin.Path, "/") {
		return fmt.Errorf("admin.path %q must start with '/'", s.Admin.Path)
	}
	if !strings.HasPrefix(s.Elements.Path, "/") {
		return fmt.Errorf("elements.path %q must start with '/'", s.Elements.Path)
	}
	if len(s.Elements.Checkpoints) == 0 {
		return errors.New("elements.checkpoints must list at least one locator")
	}
	for i, cp := range s.Elements.Checkpoints {
		if cp.Locator == "" {
			return fmt.Errorf("elements.checkpoints[%d] has no locator", i)
		}
	}
	return nil
}
