package config

import (
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Discord  DiscordConfig  `mapstructure:"discord"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Feed     FeedConfig     `mapstructure:"feed"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	ConsumerGroupID string   `mapstructure:"consumer_group_id"`
	Topics          []string `mapstructure:"topics"`
}

type DiscordConfig struct {
	// WebhookURL is the single configured external endpoint. Empty disables
	// the external channel; the in-app feed is unaffected.
	WebhookURL string `mapstructure:"webhook_url"`
}

type AuthConfig struct {
	// JWTSecret verifies the HMAC-signed session tokens issued by the
	// platform's auth service. Tokens carry "sub" (user id) and "role".
	JWTSecret string `mapstructure:"jwt_secret"`
}

type FeedConfig struct {
	// FetchLimit caps the bulk fetch a session performs on connect.
	FetchLimit int `mapstructure:"fetch_limit"`
	// RetentionDays controls the background purge of old records.
	RetentionDays int `mapstructure:"retention_days"`
}

// Load reads configuration from environment variables and an optional config
// file. Environment variables override file values. Prefix: FIXTRACK_NOTIF_
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.env", "development")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "fixtrack_notification")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group_id", "fixtrack-notification-group")
	v.SetDefault("kafka.topics", []string{"task-events", "user-events", "notification-commands"})
	v.SetDefault("discord.webhook_url", "")
	v.SetDefault("feed.fetch_limit", 50)
	v.SetDefault("feed.retention_days", 30)

	v.SetEnvPrefix("FIXTRACK_NOTIF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also support simple env vars without prefix for Docker Compose convenience
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("discord.webhook_url", "DISCORD_WEBHOOK_URL")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("server.port", "PORT")

	// Try loading config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // Not required

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" dbname=" + d.Name +
		" user=" + d.User +
		" password=" + d.Password +
		" sslmode=disable"
}
