package main

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigDir = "config"

const minSendDelaySeconds = 1

// ConfigOverrides allows overriding embedded defaults with file paths
type ConfigOverrides struct {
	SettingsPath *string
	TemplatePath *string
	EnvFilePath  *string
}

// Embedded configuration files
//
//go:embed config/settings.yaml
var defaultSettings string

//go:embed config/notification-template.html
var defaultTemplate string

// Settings represents the YAML configuration structure
type Settings struct {
	Spreadsheet struct {
		Path  string `yaml:"path"`
		Sheet string `yaml:"sheet"`
	} `yaml:"spreadsheet"`
	Mail struct {
		Host             string `yaml:"host"`
		Port             int    `yaml:"port"`
		User             string `yaml:"user"`
		Password         string `yaml:"password"`
		SenderAddress    string `yaml:"sender_address"`
		SenderName       string `yaml:"sender_name"`
		SendDelaySeconds int    `yaml:"send_delay_seconds"`
	} `yaml:"mail"`
	Notification struct {
		TemplatePath        string `yaml:"template_path"`
		SubjectPrefix       string `yaml:"subject_prefix"`
		MaxSubjectApps      int    `yaml:"max_subject_apps"`
		AttachmentThreshold int    `yaml:"attachment_threshold"`
		Deadline            string `yaml:"deadline"`
	} `yaml:"notification"`
	Tracking struct {
		DatabasePath string `yaml:"database_path"`
		LogPath      string `yaml:"log_path"`
	} `yaml:"tracking"`
}

// Config holds settings and overrides
type Config struct {
	Settings  *Settings
	Overrides *ConfigOverrides
}

// NewConfig loads settings, applies the env file and process environment,
// and validates the values that the run cannot proceed without
func NewConfig(overrides *ConfigOverrides) (*Config, error) {
	if err := ensureConfigExists(); err != nil {
		return nil, fmt.Errorf("ensuring config files exist: %w", err)
	}

	var settings *Settings
	var err error
	if overrides != nil && overrides.SettingsPath != nil {
		// Explicit settings file must exist
		settings, err = loadSettingsRequired(*overrides.SettingsPath)
		if err != nil {
			return nil, fmt.Errorf("loading settings from %s: %w", *overrides.SettingsPath, err)
		}
	} else {
		settings, err = loadSettings(getConfigPath("settings.yaml"))
		if err != nil {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
	}

	var envFile string
	if overrides != nil && overrides.EnvFilePath != nil {
		envFile = *overrides.EnvFilePath
	}
	if err := applyEnvironment(settings, envFile); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	cfg := &Config{Settings: settings, Overrides: overrides}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the run cannot start without. Anything else
// is defaulted rather than rejected.
func (c *Config) Validate() error {
	s := c.Settings
	if s.Spreadsheet.Path == "" {
		return fmt.Errorf("spreadsheet.path is required")
	}
	if s.Mail.SenderAddress == "" {
		return fmt.Errorf("mail.sender_address is required (no sender account configured)")
	}
	if s.Mail.Host == "" {
		return fmt.Errorf("mail.host is required")
	}
	if s.Spreadsheet.Sheet == "" {
		s.Spreadsheet.Sheet = "Servers"
	}
	if s.Mail.Port <= 0 {
		s.Mail.Port = 587
	}
	if s.Notification.MaxSubjectApps <= 0 {
		s.Notification.MaxSubjectApps = 3
	}
	if s.Notification.AttachmentThreshold <= 0 {
		s.Notification.AttachmentThreshold = 5
	}
	if s.Tracking.DatabasePath == "" {
		s.Tracking.DatabasePath = "followups.db"
	}
	if s.Tracking.LogPath == "" {
		s.Tracking.LogPath = "sendlog.csv"
	}
	if s.Mail.SendDelaySeconds < minSendDelaySeconds {
		log.Printf("Warning: mail.send_delay_seconds is %d, defaulting to %d (minimum)", s.Mail.SendDelaySeconds, minSendDelaySeconds)
		s.Mail.SendDelaySeconds = minSendDelaySeconds
	}
	return nil
}

// GetTemplate returns the notification template (from override file, the
// configured path, or embedded)
func (c *Config) GetTemplate() (string, error) {
	if c.Overrides != nil && c.Overrides.TemplatePath != nil {
		content, err := os.ReadFile(*c.Overrides.TemplatePath)
		if err != nil {
			return "", fmt.Errorf("reading template %s: %w", *c.Overrides.TemplatePath, err)
		}
		return string(content), nil
	}
	if c.Settings.Notification.TemplatePath != "" {
		if content, err := os.ReadFile(c.Settings.Notification.TemplatePath); err == nil {
			return string(content), nil
		}
	}
	return defaultTemplate, nil
}

// applyEnvironment loads the optional .env file and lets SMTP credentials
// from the process environment win over the YAML values
func applyEnvironment(settings *Settings, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	} else {
		// Default .env is optional
		_ = godotenv.Load()
	}

	if v := os.Getenv("SMTP_HOST"); v != "" {
		settings.Mail.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing SMTP_PORT %q: %w", v, err)
		}
		settings.Mail.Port = port
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		settings.Mail.User = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		settings.Mail.Password = v
	}
	if v := os.Getenv("SENDER_ADDRESS"); v != "" {
		settings.Mail.SenderAddress = v
	}
	return nil
}

// loadSettings loads settings from the YAML file with fallback to the
// embedded defaults when the file is missing
func loadSettings(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		data = []byte(defaultSettings)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}
	return &settings, nil
}

// loadSettingsRequired loads settings from a YAML file, failing if the file
// doesn't exist
func loadSettingsRequired(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, err
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}
	return &settings, nil
}

// getConfigPath returns the path to a config file in the config directory
func getConfigPath(filename string) string {
	return filepath.Join(defaultConfigDir, filename)
}

// ensureConfigExists creates the config directory and writes the default
// settings and template on first run
func ensureConfigExists() error {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	settingsPath := getConfigPath("settings.yaml")
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		if err := os.WriteFile(settingsPath, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("writing settings.yaml: %w", err)
		}
	}

	templatePath := getConfigPath("notification-template.html")
	if _, err := os.Stat(templatePath); os.IsNotExist(err) {
		if err := os.WriteFile(templatePath, []byte(defaultTemplate), 0644); err != nil {
			return fmt.Errorf("writing notification-template.html: %w", err)
		}
	}

	return nil
}
