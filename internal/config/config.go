package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Path string
	}
	Storage struct {
		Bucket          string
		KeyPrefix       string
		Region          string
		Endpoint        string
		PublicURL       string
		AccessKeyID     string
		SecretAccessKey string
	}
	AWS struct {
		Profile string
	}
	Upload struct {
		TempDir   string
		Timeout   time.Duration
		MaxMemory int64
	}
	Log struct {
		Level  string
		Format string
	}
	CORS struct {
		AllowedOrigin string
	}
}

// Load reads configuration from environment variables and optional config files.
// Variables from a local .env file never override ones already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("VIDEOTUBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8000")
	v.SetDefault("database.path", "data/videotube.db")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "users")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.publicurl", "")
	v.SetDefault("storage.accesskeyid", "")
	v.SetDefault("storage.secretaccesskey", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("upload.tempdir", "public/temp")
	v.SetDefault("upload.timeout", 30*time.Second)
	v.SetDefault("upload.maxmemory", 8<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("cors.allowedorigin", "*")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate reports configuration that would prevent the service from working.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		return fmt.Errorf("storage bucket is required")
	}
	if strings.TrimSpace(c.Upload.TempDir) == "" {
		return fmt.Errorf("upload temp dir is required")
	}
	if c.Upload.Timeout <= 0 {
		return fmt.Errorf("upload timeout must be positive")
	}
	if c.Upload.MaxMemory <= 0 {
		return fmt.Errorf("upload max memory must be positive")
	}
	return nil
}
