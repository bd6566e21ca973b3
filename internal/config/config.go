package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig       `mapstructure:"server"`
	Gemini     GeminiConfig       `mapstructure:"gemini"`
	Auth       AuthConfig         `mapstructure:"auth"`
	Session    SessionConfig      `mapstructure:"session"`
	RateLimit  RateLimitConfig    `mapstructure:"rate_limit"`
	Storage    StorageConfig      `mapstructure:"storage"`
	Cache      CacheConfig        `mapstructure:"cache"`
	Logging    LoggingConfig      `mapstructure:"logging"`
	Monitoring MonitoringConfig   `mapstructure:"monitoring"`
	I18n       I18nConfig         `mapstructure:"i18n"`
	Subjects   map[string]Subject `mapstructure:"subjects"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type GeminiConfig struct {
	Endpoint  string        `mapstructure:"endpoint"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxTokens int           `mapstructure:"max_tokens"`
}

// AuthConfig holds role credentials. PINs are never read from the config
// file, only from environment variables.
type AuthConfig struct {
	StudentPin string `mapstructure:"student_pin"`
	AdminPin   string `mapstructure:"admin_pin"`
}

type SessionConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	WarningTime      time.Duration `mapstructure:"warning_time"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	LockoutTime      time.Duration `mapstructure:"lockout_time"`
	ActivityThrottle time.Duration `mapstructure:"activity_throttle"`
}

type RateLimitConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	QuestionsPerHour int  `mapstructure:"questions_per_hour"`
	PhotosPerHour    int  `mapstructure:"photos_per_hour"`
	TestsPerDay      int  `mapstructure:"tests_per_day"`
	DefaultCeiling   int  `mapstructure:"default_ceiling"`
}

type StorageConfig struct {
	Type   string       `mapstructure:"type"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Memory MemoryConfig `mapstructure:"memory"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MemoryConfig struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Directory       string   `mapstructure:"directory"`
	Languages       []string `mapstructure:"languages"`
}

// Subject describes one CBSE subject and its syllabus topics
type Subject struct {
	Name   string   `mapstructure:"name"`
	NameHi string   `mapstructure:"name_hi"`
	Color  string   `mapstructure:"color"`
	Topics []string `mapstructure:"topics"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Secrets and credentials come only from the environment, never from
	// the config file.
	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("auth.student_pin", "SMARTPATH_STUDENT_PIN")
	viper.BindEnv("auth.admin_pin", "SMARTPATH_ADMIN_PIN")
	viper.BindEnv("storage.redis.addr", "REDIS_ADDR")
	viper.BindEnv("storage.redis.password", "REDIS_PASSWORD")
	viper.BindEnv("storage.redis.db", "REDIS_DB")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Session.Timeout == 0 {
		cfg.Session.Timeout = 30 * time.Minute
	}
	if cfg.Session.WarningTime == 0 {
		cfg.Session.WarningTime = 5 * time.Minute
	}
	if cfg.Session.MaxAttempts == 0 {
		cfg.Session.MaxAttempts = 3
	}
	if cfg.Session.LockoutTime == 0 {
		cfg.Session.LockoutTime = 15 * time.Minute
	}
	if cfg.Session.ActivityThrottle == 0 {
		cfg.Session.ActivityThrottle = 30 * time.Second
	}
	if cfg.RateLimit.QuestionsPerHour == 0 {
		cfg.RateLimit.QuestionsPerHour = 50
	}
	if cfg.RateLimit.PhotosPerHour == 0 {
		cfg.RateLimit.PhotosPerHour = 20
	}
	if cfg.RateLimit.TestsPerDay == 0 {
		cfg.RateLimit.TestsPerDay = 10
	}
	if cfg.RateLimit.DefaultCeiling == 0 {
		cfg.RateLimit.DefaultCeiling = 100
	}
	if cfg.Gemini.Timeout == 0 {
		cfg.Gemini.Timeout = 60 * time.Second
	}
	if cfg.Gemini.MaxTokens == 0 {
		cfg.Gemini.MaxTokens = 2048
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Gemini.Endpoint == "" {
		return fmt.Errorf("gemini endpoint is required")
	}
	if cfg.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.Auth.StudentPin == "" || cfg.Auth.AdminPin == "" {
		return fmt.Errorf("SMARTPATH_STUDENT_PIN and SMARTPATH_ADMIN_PIN are required")
	}
	if cfg.Auth.StudentPin == cfg.Auth.AdminPin {
		return fmt.Errorf("student and admin PINs must differ")
	}
	return nil
}

// GetSubject returns the subject configuration for an id, or nil
func (c *Config) GetSubject(id string) *Subject {
	if s, ok := c.Subjects[id]; ok {
		return &s
	}
	return nil
}
