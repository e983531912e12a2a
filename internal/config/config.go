package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Replicate ReplicateConfig
	Spotify   SpotifyConfig
	R2        R2Config
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	ApiDomain string // externally reachable base URL, used to build webhook callback URLs
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Type string // "sqlite" or "postgres"
	Conn string
}

type ReplicateConfig struct {
	APIToken      string
	BaseURL       string
	ModelVersion  string
	WebhookSecret string
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type RateLimitConfig struct {
	GeneratePerHour int
	SearchPerMin    int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("REPLICATE_API_TOKEN")
	readSecret("REPLICATE_WEBHOOK_SECRET")
	readSecret("SPOTIFY_CLIENT_ID")
	readSecret("SPOTIFY_CLIENT_SECRET")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("database.type", "DATABASE_TYPE")
	_ = viper.BindEnv("database.conn", "DATABASE_CONN")
	_ = viper.BindEnv("replicate.api_token", "REPLICATE_API_TOKEN")
	_ = viper.BindEnv("replicate.base_url", "REPLICATE_BASE_URL")
	_ = viper.BindEnv("replicate.model_version", "REPLICATE_MODEL_VERSION")
	_ = viper.BindEnv("replicate.webhook_secret", "REPLICATE_WEBHOOK_SECRET")
	_ = viper.BindEnv("spotify.client_id", "SPOTIFY_CLIENT_ID")
	_ = viper.BindEnv("spotify.client_secret", "SPOTIFY_CLIENT_SECRET")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.api_domain", "http://localhost:8000")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.conn", "songsmith.db")
	viper.SetDefault("replicate.base_url", "https://api.replicate.com")
	viper.SetDefault("replicate.model_version", "meta/musicgen:671ac645ce5e552cc63a54a2bbff63fcf798043055d2dac5fc9e36a837eedcfb")
	viper.SetDefault("ratelimit.generate_per_hour", 10)
	viper.SetDefault("ratelimit.search_per_min", 30)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Database: DatabaseConfig{
			Type: viper.GetString("database.type"),
			Conn: viper.GetString("database.conn"),
		},
		Replicate: ReplicateConfig{
			APIToken:      viper.GetString("replicate.api_token"),
			BaseURL:       viper.GetString("replicate.base_url"),
			ModelVersion:  viper.GetString("replicate.model_version"),
			WebhookSecret: viper.GetString("replicate.webhook_secret"),
		},
		Spotify: SpotifyConfig{
			ClientID:     viper.GetString("spotify.client_id"),
			ClientSecret: viper.GetString("spotify.client_secret"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
			SearchPerMin:    viper.GetInt("ratelimit.search_per_min"),
		},
	}

	return cfg, nil
}
