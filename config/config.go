package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type JWTConfig struct {
	SecretKey  string        `mapstructure:"secretKey"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	AccessTTL  time.Duration `mapstructure:"accessTTL"`
	RefreshTTL time.Duration `mapstructure:"refreshTTL"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"-"`
	Model  string `mapstructure:"model"`
}

type MapsConfig struct {
	APIKey      string        `mapstructure:"-"`
	DefaultCity string        `mapstructure:"defaultCity"`
	GeocodeTTL  time.Duration `mapstructure:"geocodeTTL"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type MemoryConfig struct {
	BaseURL   string        `mapstructure:"baseURL"`
	APIKey    string        `mapstructure:"-"`
	ProjectID string        `mapstructure:"-"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type Config struct {
	Mode         string `mapstructure:"mode"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort    string        `mapstructure:"HTTPPort"`
		MetricsPort string        `mapstructure:"metricsPort"`
		Timeout     time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	JWT       JWTConfig `mapstructure:"jwt"`
	Providers struct {
		Gemini GeminiConfig `mapstructure:"gemini"`
		Maps   MapsConfig   `mapstructure:"maps"`
		Memory MemoryConfig `mapstructure:"memory"`
	} `mapstructure:"providers"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}

	// Secrets come from the environment, never from the config file.
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		config.Repositories.Postgres.Password = pw
	}
	if secret := os.Getenv("JWT_SECRET_KEY"); secret != "" {
		config.JWT.SecretKey = secret
	}
	config.Providers.Gemini.APIKey = os.Getenv("GOOGLE_GEMINI_API_KEY")
	config.Providers.Maps.APIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	config.Providers.Memory.APIKey = os.Getenv("AGENT_MEMORY_API_KEY")
	config.Providers.Memory.ProjectID = os.Getenv("AGENT_MEMORY_PROJECT_ID")

	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
