package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
		AllowedOrigins  []string      `yaml:"allowedOrigins"`
	} `yaml:"server"`

	AI struct {
		BaseURL    string        `yaml:"baseURL"`
		Model      string        `yaml:"model"`
		MaxTokens  int           `yaml:"maxTokens"`
		Timeout    time.Duration `yaml:"timeout"`
		SecretName string        `yaml:"secretName"`
	} `yaml:"ai"`

	Triage struct {
		Mode        string  `yaml:"mode"`
		Temperature float32 `yaml:"temperature"`
		Language    string  `yaml:"language"`
	} `yaml:"triage"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | "" (history disabled)
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Auth struct {
		// client name -> key; empty disables auth
		Keys map[string]string `yaml:"keys"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	// Secrets is a hosted-secret style key/value store, e.g. XAI_API_KEY.
	Secrets map[string]string `yaml:"secrets"`
}

// Default returns a config usable without a file
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 90 * time.Second
	c.Server.ShutdownTimeout = 5 * time.Second
	c.AI.BaseURL = "https://api.x.ai/v1"
	c.AI.Model = "grok-beta"
	c.AI.MaxTokens = 1024
	c.AI.Timeout = 60 * time.Second
	c.AI.SecretName = "XAI_API_KEY"
	c.Triage.Mode = "direct"
	c.Triage.Temperature = 0.3
	c.RateLimit.Capacity = 10
	c.RateLimit.RefillRate = 1
	c.Log.Level = "info"
	return &c
}

// Load reads the yaml file on top of the defaults. A missing file is not an
// error when allowMissing is set.
func Load(path string, allowMissing bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && allowMissing:
	default:
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AI_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	// OpenAI keys switch the endpoint only when nothing else was configured
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && os.Getenv("XAI_API_KEY") == "" && c.Secrets[c.AI.SecretName] == "" {
		c.AI.SecretName = "OPENAI_API_KEY"
		if os.Getenv("AI_BASE_URL") == "" {
			c.AI.BaseURL = "https://api.openai.com/v1"
		}
		if os.Getenv("AI_MODEL") == "" {
			c.AI.Model = "gpt-4o-mini"
		}
	}
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	if c.Triage.Temperature < 0 || c.Triage.Temperature > 1 {
		return fmt.Errorf("triage.temperature must be within [0,1], got %v", c.Triage.Temperature)
	}
	switch c.Triage.Mode {
	case "", "direct", "agents":
	default:
		return fmt.Errorf("triage.mode must be direct or agents, got %q", c.Triage.Mode)
	}
	switch c.Database.Driver {
	case "", "mysql", "postgres":
	default:
		return fmt.Errorf("database.driver must be mysql or postgres, got %q", c.Database.Driver)
	}
	if _, err := url.ParseRequestURI(c.AI.BaseURL); err != nil {
		return fmt.Errorf("ai.baseURL: %w", err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// HistoryEnabled reports whether a database is configured
func (c *Config) HistoryEnabled() bool { return c.Database.Driver != "" }

// ReportsEnabled reports whether MinIO is configured
func (c *Config) ReportsEnabled() bool {
	return c.Minio.Endpoint != "" && c.Minio.BucketName != ""
}

// DSN builds the driver specific data source name
func (c *Config) DSN() string {
	if strings.EqualFold(c.Database.Driver, "postgres") {
		ssl := c.Database.SSLMode
		if ssl == "" {
			ssl = "disable"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.Database.User, c.Database.Password),
			Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
			Path:     "/" + c.Database.Name,
			RawQuery: "sslmode=" + ssl,
		}
		return u.String()
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}
