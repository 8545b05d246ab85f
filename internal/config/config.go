package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port               string   `yaml:"port"`
		CORSAllowedOrigins []string `yaml:"corsAllowedOrigins"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Model struct {
		Provider    string  `yaml:"provider"` // openai | gemini | ollama
		APIKey      string  `yaml:"apiKey"`
		BaseURL     string  `yaml:"baseURL"`
		Name        string  `yaml:"name"`
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"maxTokens"`
		Timeout     string  `yaml:"timeout"`
	} `yaml:"model"`
	Generation struct {
		MaxDocumentChars int `yaml:"maxDocumentChars"`
	} `yaml:"generation"`
	Store struct {
		Driver string `yaml:"driver"` // memory | redis | postgres | mongo
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Cache struct {
		TTL string `yaml:"ttl"`
	} `yaml:"cache"`
	Archive struct {
		Driver    string `yaml:"driver"` // none | local | minio | gcs
		Dir       string `yaml:"dir"`
		Bucket    string `yaml:"bucket"`
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"accessKey"`
		SecretKey string `yaml:"secretKey"`
		Region    string `yaml:"region"`
		UseSSL    bool   `yaml:"useSSL"`
	} `yaml:"archive"`
	Events struct {
		AMQPURL  string `yaml:"amqpURL"`
		Exchange string `yaml:"exchange"`
	} `yaml:"events"`
}

const (
	DefaultPort             = "8080"
	DefaultMaxDocumentChars = 12000
)

// Load reads YAML config from path, then applies env overrides and defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnv lets secrets live outside the YAML file.
func (c *Config) applyEnv() {
	if c.Model.APIKey == "" {
		for _, key := range []string{"MODEL_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"} {
			if v := os.Getenv(key); v != "" {
				c.Model.APIKey = v
				break
			}
		}
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		c.Events.AMQPURL = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" && len(c.Server.CORSAllowedOrigins) == 0 {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Server.CORSAllowedOrigins = append(c.Server.CORSAllowedOrigins, origin)
			}
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = DefaultPort
	}
	if c.Model.Provider == "" {
		c.Model.Provider = "openai"
	}
	if c.Generation.MaxDocumentChars <= 0 {
		c.Generation.MaxDocumentChars = DefaultMaxDocumentChars
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Archive.Driver == "" {
		c.Archive.Driver = "none"
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = "quiz.events"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "quizgen"
	}
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
