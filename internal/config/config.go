package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the agent
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Log        LogConfig        `mapstructure:"log"`
	Security   SecurityConfig   `mapstructure:"security"`
	Protection ProtectionConfig `mapstructure:"protection"`
	Notify     NotifyConfig     `mapstructure:"notify"`
}

// ServerConfig holds the local admin API server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StorageConfig holds the encrypted on-device store configuration
type StorageConfig struct {
	// DataDir is the directory holding the sealed collections
	DataDir string `mapstructure:"data_dir"`
	// Key is the hex-encoded 32-byte at-rest encryption key
	Key string `mapstructure:"key"`
	// KeyFile points to a file holding the hex key (takes precedence over Key)
	KeyFile string `mapstructure:"key_file"`
	// RotationCap is the maximum number of audit events retained
	RotationCap int `mapstructure:"rotation_cap"`
	// ExportDir is where exported log artifacts are written
	ExportDir string `mapstructure:"export_dir"`
}

// EncryptionKey resolves and decodes the at-rest key
func (c StorageConfig) EncryptionKey() ([]byte, error) {
	raw := c.Key
	if c.KeyFile != "" {
		data, err := os.ReadFile(c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file: %w", err)
		}
		raw = strings.TrimSpace(string(data))
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode storage key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("storage key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	Password     PasswordConfig     `mapstructure:"password"`
	Tokens       TokenConfig        `mapstructure:"tokens"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
}

// PasswordConfig holds password hashing configuration
type PasswordConfig struct {
	MinLength         int    `mapstructure:"min_length"`
	Argon2Memory      uint32 `mapstructure:"argon2_memory"`
	Argon2Iterations  uint32 `mapstructure:"argon2_iterations"`
	Argon2Parallelism uint8  `mapstructure:"argon2_parallelism"`
}

// TokenConfig holds admin API token configuration
type TokenConfig struct {
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

// RateLimitingConfig holds rate limiting configuration
type RateLimitingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ProtectionConfig holds the initial protection posture defaults
type ProtectionConfig struct {
	// EmergencyContact seeds the emergency contact on first run only;
	// afterwards the persisted configuration wins.
	EmergencyContact string `mapstructure:"emergency_contact"`
}

// NotifyConfig holds outbound text notification configuration
type NotifyConfig struct {
	// Backend selects the sender implementation: "log" or "none"
	Backend string `mapstructure:"backend"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration from an explicit file path, falling back
// to the default search paths when path is empty
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/phonesentry")
	}

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Bind environment variables
	v.SetEnvPrefix("PHONESENTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 7310)

	// Storage defaults
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.rotation_cap", 1000)
	v.SetDefault("storage.export_dir", "./exports")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Security defaults
	v.SetDefault("security.password.min_length", 6)
	v.SetDefault("security.password.argon2_memory", 64*1024)
	v.SetDefault("security.password.argon2_iterations", 3)
	v.SetDefault("security.password.argon2_parallelism", 4)
	v.SetDefault("security.tokens.access_token_ttl", 15*time.Minute)
	v.SetDefault("security.tokens.issuer", "phonesentry")
	v.SetDefault("security.rate_limiting.enabled", true)

	// Notify defaults
	v.SetDefault("notify.backend", "log")
}
