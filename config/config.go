package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort      string        `mapstructure:"HTTPPort"`
		Timeout       time.Duration `mapstructure:"HTTPTimeout"`
		PublicBaseURL string        `mapstructure:"publicBaseURL"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Auth struct {
		JWTSecret string `mapstructure:"jwtSecret"`
		Issuer    string `mapstructure:"issuer"`
	} `mapstructure:"auth"`
	Providers struct {
		GoogleMaps GoogleMapsConfig `mapstructure:"googleMaps"`
		Unsplash   struct {
			AccessKey string `mapstructure:"accessKey"`
			BaseURL   string `mapstructure:"baseURL"`
		} `mapstructure:"unsplash"`
		Completion CompletionConfig `mapstructure:"completion"`
	} `mapstructure:"providers"`
	Draft struct {
		Concurrency       int     `mapstructure:"concurrency"`
		RequestsPerMinute float64 `mapstructure:"requestsPerMinute"`
	} `mapstructure:"draft"`
	Aggregator struct {
		SessionTTL time.Duration `mapstructure:"sessionTTL"`
	} `mapstructure:"aggregator"`
	Observability struct {
		ServiceName string `mapstructure:"serviceName"`
		MetricsPort string `mapstructure:"metricsPort"`
	} `mapstructure:"observability"`
}

type GoogleMapsConfig struct {
	APIKey            string        `mapstructure:"apiKey"`
	PlacesBaseURL     string        `mapstructure:"placesBaseURL"`
	RoutesBaseURL     string        `mapstructure:"routesBaseURL"`
	RequestsPerSecond float64       `mapstructure:"requestsPerSecond"`
	Burst             int           `mapstructure:"burst"`
	CacheTTL          time.Duration `mapstructure:"cacheTTL"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type CompletionConfig struct {
	Backend     string  `mapstructure:"backend"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"apiKey"`
	BaseURL     string  `mapstructure:"baseURL"`
	Temperature float32 `mapstructure:"temperature"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// PROVIDERS_GOOGLEMAPS_APIKEY overrides providers.googleMaps.apiKey, and so on.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
