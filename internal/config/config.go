// Package config loads service configuration from the environment, with an
// optional config file for local development.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the fully resolved service configuration.
type Config struct {
	Port string

	// DatabaseURL selects the Postgres backend when set; otherwise the
	// embedded SQLite file at SQLitePath is used.
	DatabaseURL string
	SQLitePath  string

	AuthServiceURL        string
	UsuariosServiceURL    string
	UbicacionesServiceURL string

	// ServiceToken authenticates this service against the usuarios service.
	ServiceToken string

	OpenWeatherAPIKey string
	OpenWeatherURL    string

	MaxConglomerados int

	RolesCacheTTL time.Duration
	ClientTimeout time.Duration

	LogLevel string
}

// Load reads configuration from the environment (CONGLOMERADOS_* variables)
// and, when present, a conglomerados.yaml in the working directory. Explicit
// environment values always win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONGLOMERADOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "3003")
	v.SetDefault("sqlite_path", "conglomerados.db")
	v.SetDefault("auth_service_url", "http://localhost:9999")
	v.SetDefault("usuarios_service_url", "http://localhost:3001")
	v.SetDefault("ubicaciones_service_url", "http://localhost:3002")
	v.SetDefault("openweather_url", "https://api.openweathermap.org")
	v.SetDefault("max_conglomerados", 1500)
	v.SetDefault("roles_cache_ttl", "5m")
	v.SetDefault("client_timeout", "10s")
	v.SetDefault("log_level", "info")

	v.SetConfigName("conglomerados")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "leyendo archivo de configuración")
		}
	}

	cfg := &Config{
		Port:                  v.GetString("port"),
		DatabaseURL:           v.GetString("database_url"),
		SQLitePath:            v.GetString("sqlite_path"),
		AuthServiceURL:        v.GetString("auth_service_url"),
		UsuariosServiceURL:    v.GetString("usuarios_service_url"),
		UbicacionesServiceURL: v.GetString("ubicaciones_service_url"),
		ServiceToken:          v.GetString("service_token"),
		OpenWeatherAPIKey:     v.GetString("openweather_api_key"),
		OpenWeatherURL:        v.GetString("openweather_url"),
		MaxConglomerados:      v.GetInt("max_conglomerados"),
		RolesCacheTTL:         v.GetDuration("roles_cache_ttl"),
		ClientTimeout:         v.GetDuration("client_timeout"),
		LogLevel:              v.GetString("log_level"),
	}

	if cfg.MaxConglomerados < 1 {
		return nil, errors.Errorf("max_conglomerados debe ser positivo, no %d", cfg.MaxConglomerados)
	}
	return cfg, nil
}
