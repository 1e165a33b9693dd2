package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Program  ProgramConfig  `mapstructure:"program"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration.
// Expiration is a duration string in the file ("1h", "60m") and Viper
// unmarshals it straight into time.Duration.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// ProgramConfig tunes the scheduling and session-execution behavior.
type ProgramConfig struct {
	// CompletionThreshold is the fraction of scheduled workout days that must
	// be completed before a phase advance is allowed (0 < t <= 1).
	CompletionThreshold float64 `mapstructure:"completion_threshold"`
	// AutosaveDebounce is how long session progress writes are held back and
	// coalesced before hitting the database.
	AutosaveDebounce time.Duration `mapstructure:"autosave_debounce"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	// Set the path to look for the config file in
	viper.AddConfigPath(path)
	// Set the name of the config file (without extension)
	viper.SetConfigName("config")
	// Set the type of the config file
	viper.SetConfigType("yaml")

	// --- Environment Variable Handling ---
	viper.AutomaticEnv()
	// Use replacer for nested keys e.g., server.address -> SERVER_ADDRESS,
	// program.completion_threshold -> PROGRAM_COMPLETION_THRESHOLD
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	// --- Set default values ---
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "training_app_default")
	viper.SetDefault("s3.use_ssl", true)     // Default to true for cloud providers
	viper.SetDefault("jwt.expiration", "1h") // Default JWT expiry to 1 hour
	viper.SetDefault("program.completion_threshold", 0.85)
	viper.SetDefault("program.autosave_debounce", "2s")

	// --- Read Config File ---
	err = viper.ReadInConfig()
	// If config file not found, continue (might rely solely on env vars),
	// but fail on any other read error.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	// --- Unmarshal Config ---
	// Duration strings ("2s", "1h") parse directly into time.Duration fields.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
