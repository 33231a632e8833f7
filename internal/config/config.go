// file: internal/config/config.go
// version: 2.0.0
// guid: 7b8c9d0e-1f2a-3b4c-5d6e-7f8a9b0c1d2e

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Catalog encodings
const (
	FormatJSON   = "json"
	FormatModule = "module"
)

// Placement policies for entries written by the pipeline
const (
	PlacementPreserve = "preserve"
	PlacementFirst    = "first"
)

// Providers
const (
	ProviderTidal  = "tidal"
	ProviderITunes = "itunes"
)

// ErrMissingCredentials is returned when a provider needs secrets that are not set.
var ErrMissingCredentials = errors.New("missing credentials")

// MissingCredentialsError names the environment variables that were empty.
type MissingCredentialsError struct {
	Provider string
	Missing  []string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("%v for %s: set %s (environment or .env)",
		ErrMissingCredentials, e.Provider, strings.Join(e.Missing, ", "))
}

func (e *MissingCredentialsError) Unwrap() error { return ErrMissingCredentials }

// Config holds application configuration
type Config struct {
	CatalogPath       string
	CatalogFormat     string // "json" or "module"; inferred from the extension when empty
	CoversDir         string
	CoverURLPrefix    string
	NewEntryPlacement string // "preserve" or "first"
	Provider          string
	Country           string
	RequestDelay      time.Duration
	HTTPTimeout       time.Duration
	CacheDir          string
	CacheTTL          time.Duration
	NoCache           bool
	BackupMax         int
	MetricsFile       string
	LogLevel          string

	ITunesBaseURL string
	TidalAPIURL   string
	TidalAuthURL  string

	Tidal struct {
		ClientID     string
		ClientSecret string
	}
}

var AppConfig Config

// SetDefaults registers default values with viper.
func SetDefaults() {
	viper.SetDefault("catalog_path", "src/utils/catalog.json")
	viper.SetDefault("catalog_format", "")
	viper.SetDefault("covers_dir", "public/covers")
	viper.SetDefault("cover_url_prefix", "/twc-vinyl-shelf/covers/")
	viper.SetDefault("new_entry_placement", PlacementPreserve)
	viper.SetDefault("provider", ProviderTidal)
	viper.SetDefault("country", "US")
	viper.SetDefault("request_delay", 400*time.Millisecond)
	viper.SetDefault("http_timeout", 30*time.Second)
	viper.SetDefault("cache_dir", filepath.Join(".cache", "vinyl-shelf"))
	viper.SetDefault("cache_ttl", 24*time.Hour)
	viper.SetDefault("no_cache", false)
	viper.SetDefault("backup_max", 5)
	viper.SetDefault("metrics_file", "")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("itunes_base_url", "https://itunes.apple.com")
	viper.SetDefault("tidal_api_url", "https://openapi.tidal.com/v2")
	viper.SetDefault("tidal_auth_url", "https://auth.tidal.com/v1/oauth2/token")

	_ = viper.BindEnv("tidal.client_id", "TIDAL_CLIENT_ID")
	_ = viper.BindEnv("tidal.client_secret", "TIDAL_CLIENT_SECRET")
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Variables that are already set win. Missing files are skipped.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Printf("[WARN] failed to load %s: %v", f, err)
		}
	}
}

// InitConfig initializes the application configuration
func InitConfig() {
	SetDefaults()

	AppConfig = Config{
		CatalogPath:       viper.GetString("catalog_path"),
		CatalogFormat:     strings.ToLower(viper.GetString("catalog_format")),
		CoversDir:         viper.GetString("covers_dir"),
		CoverURLPrefix:    viper.GetString("cover_url_prefix"),
		NewEntryPlacement: strings.ToLower(viper.GetString("new_entry_placement")),
		Provider:          strings.ToLower(viper.GetString("provider")),
		Country:           strings.ToUpper(viper.GetString("country")),
		RequestDelay:      viper.GetDuration("request_delay"),
		HTTPTimeout:       viper.GetDuration("http_timeout"),
		CacheDir:          viper.GetString("cache_dir"),
		CacheTTL:          viper.GetDuration("cache_ttl"),
		NoCache:           viper.GetBool("no_cache"),
		BackupMax:         viper.GetInt("backup_max"),
		MetricsFile:       viper.GetString("metrics_file"),
		LogLevel:          viper.GetString("log_level"),
		ITunesBaseURL:     strings.TrimRight(viper.GetString("itunes_base_url"), "/"),
		TidalAPIURL:       strings.TrimRight(viper.GetString("tidal_api_url"), "/"),
		TidalAuthURL:      viper.GetString("tidal_auth_url"),
	}
	AppConfig.Tidal.ClientID = strings.TrimSpace(viper.GetString("tidal.client_id"))
	AppConfig.Tidal.ClientSecret = strings.TrimSpace(viper.GetString("tidal.client_secret"))

	if AppConfig.CatalogFormat == "" {
		AppConfig.CatalogFormat = FormatForPath(AppConfig.CatalogPath)
	}
	if AppConfig.NewEntryPlacement != PlacementFirst {
		AppConfig.NewEntryPlacement = PlacementPreserve
	}
	if !strings.HasSuffix(AppConfig.CoverURLPrefix, "/") {
		AppConfig.CoverURLPrefix += "/"
	}
	if AppConfig.Country == "" {
		AppConfig.Country = "US"
	}
}

// FormatForPath infers the catalog encoding from a file name.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".ts":
		return FormatModule
	default:
		return FormatJSON
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.CatalogPath == "" {
		return errors.New("catalog_path must be set")
	}
	if c.CatalogFormat != FormatJSON && c.CatalogFormat != FormatModule {
		return fmt.Errorf("unsupported catalog_format %q", c.CatalogFormat)
	}
	if c.Provider != ProviderTidal && c.Provider != ProviderITunes {
		return fmt.Errorf("unsupported provider %q", c.Provider)
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request_delay must not be negative, got %v", c.RequestDelay)
	}
	return nil
}

// TidalCredentials returns the client id and secret, or a
// *MissingCredentialsError naming whichever is absent.
func (c *Config) TidalCredentials() (string, string, error) {
	var missing []string
	if c.Tidal.ClientID == "" {
		missing = append(missing, "TIDAL_CLIENT_ID")
	}
	if c.Tidal.ClientSecret == "" {
		missing = append(missing, "TIDAL_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return "", "", &MissingCredentialsError{Provider: ProviderTidal, Missing: missing}
	}
	return c.Tidal.ClientID, c.Tidal.ClientSecret, nil
}
