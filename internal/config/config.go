package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config is the full service configuration, loaded once at startup and
// passed explicitly to every component that needs it.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	EntryCompleted    string `mapstructure:"entry_completed"`
	TransferCompleted string `mapstructure:"transfer_completed"`
}

type BusinessConfig struct {
	LockWaitMillis    int `mapstructure:"lock_wait_millis"`   // budget for acquiring an account lock
	LockTTLSeconds    int `mapstructure:"lock_ttl_seconds"`   // redis lock expiry
	MaxRetryCount     int `mapstructure:"max_retry_count"`    // outbox delivery retries
	ReconcileInterval int `mapstructure:"reconcile_interval"` // seconds between ledger drift checks
	DefaultPageSize   int `mapstructure:"default_page_size"`  // history pagination default
}

// LoadConfig reads the yaml config file at configPath.
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("failed to parse config file: %v", err)
	}

	return config
}
