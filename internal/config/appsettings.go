package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppSettings are the operator-editable display settings loaded from YAML.
// They shape the user-visible surfaces, not the authorization decision.
type AppSettings struct {
	// AppName is shown in page titles and the denied/unavailable surfaces.
	AppName string `yaml:"appName"`
	// UnavailableMessage is shown on the "temporarily unavailable" surface
	// when the access check is disabled for maintenance.
	UnavailableMessage string `yaml:"unavailableMessage"`
	// Disabled switches the app into maintenance mode: non-admin visitors
	// are routed to the unavailable surface.
	Disabled bool `yaml:"disabled"`
	// Debug exposes raw error detail on error surfaces. Never enable in
	// production.
	Debug bool `yaml:"debug"`
}

// DefaultAppSettings returns the settings used when no file is configured.
func DefaultAppSettings() *AppSettings {
	return &AppSettings{
		AppName:            "Portal Gate",
		UnavailableMessage: "This application is temporarily unavailable.",
	}
}

// LoadAppSettings reads and parses the app settings file. Missing optional
// fields fall back to defaults.
func LoadAppSettings(path string) (*AppSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read app settings: %w", err)
	}
	settings := DefaultAppSettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse app settings: %w", err)
	}
	if settings.AppName == "" {
		settings.AppName = "Portal Gate"
	}
	return settings, nil
}
