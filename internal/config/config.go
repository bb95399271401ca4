package config

import (
	"log"
	"os"
)

const (
	defaultDBPath        = "./dev.db"
	defaultPort          = "8080"
	defaultConfigVersion = "dev"
	defaultRatesPath     = "data/counties-rate-list.json"
	defaultSpacesRegion  = "nyc3"
)

// Spaces holds the object-storage settings for report uploads.
type Spaces struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	CDNDomain string
}

// Configured reports whether enough settings are present to attempt uploads.
func (s Spaces) Configured() bool {
	return s.Endpoint != "" && s.Bucket != "" && s.AccessKey != "" && s.SecretKey != ""
}

// Config holds application configuration sourced from environment variables.
type Config struct {
	Port          string
	DBPath        string
	ConfigVersion string
	RatesPath     string
	AdminToken    string
	HubSpotToken  string
	WebhookURL    string
	Spaces        Spaces
}

// IsDev reports whether the process runs in development mode, which enables
// automatic migrations on startup.
func (c Config) IsDev() bool {
	return os.Getenv("APP_ENV") != "production"
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	_ = loadDotEnv(".env")

	cfg := Config{
		Port:          os.Getenv("PORT"),
		DBPath:        os.Getenv("DB_PATH"),
		ConfigVersion: os.Getenv("CONFIG_VERSION"),
		RatesPath:     os.Getenv("COUNTY_RATES_PATH"),
		AdminToken:    os.Getenv("ADMIN_TOKEN"),
		HubSpotToken:  os.Getenv("HUBSPOT_ACCESS_TOKEN"),
		WebhookURL:    os.Getenv("SUBMISSIONS_WEBHOOK_URL"),
		Spaces: Spaces{
			Endpoint:  os.Getenv("DO_SPACES_ENDPOINT"),
			Region:    os.Getenv("DO_SPACES_REGION"),
			Bucket:    os.Getenv("DO_SPACES_BUCKET"),
			AccessKey: os.Getenv("DO_SPACES_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("DO_SPACES_SECRET_ACCESS_KEY"),
			CDNDomain: os.Getenv("DO_SPACES_CDN_DOMAIN"),
		},
	}

	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.ConfigVersion == "" {
		cfg.ConfigVersion = defaultConfigVersion
	}
	if cfg.RatesPath == "" {
		cfg.RatesPath = defaultRatesPath
	}
	if cfg.Spaces.Region == "" {
		cfg.Spaces.Region = defaultSpacesRegion
	}

	if cfg.HubSpotToken == "" {
		log.Print("warning: HUBSPOT_ACCESS_TOKEN is not set, CRM upserts will be skipped")
	}
	if !cfg.Spaces.Configured() {
		log.Print("warning: DO_SPACES_* is not fully set, report uploads will be skipped")
	}
	if cfg.AdminToken == "" {
		log.Print("warning: ADMIN_TOKEN is not set, the submissions listing is disabled")
	}

	return cfg
}
