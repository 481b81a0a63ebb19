package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	MQTT      MQTTConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	InfluxDB  InfluxDBConfig
	AuthApi   AuthApiConfig
	SMTP      SMTPConfig
	Log       LogConfig
	Ingestion IngestionConfig
}

type MQTTConfig struct {
	Broker    string
	ClientID  string
	Namespace string
	Username  string
	Password  string
}

type PostgresConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	URL      string
	Password string
	Username string
	DB       int
}

type InfluxDBConfig struct {
	Enabled bool
	URL     string
	Token   string
	Org     string
	Bucket  string
}

type AuthApiConfig struct {
	URL   string
	Token string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type LogConfig struct {
	Level  string
	Format string
}

type IngestionConfig struct {
	Workers   int
	QueueSize int
	CacheTTL  int // seconds
}

func LoadConfig() *Config {
	viper.SetConfigFile(".env")
	viper.ReadInConfig()
	viper.AutomaticEnv()

	viper.SetDefault("MQTT_NAMESPACE", "ecohub")
	viper.SetDefault("MQTT_CLIENT_ID", "ecohub-core")
	viper.SetDefault("POSTGRES_SSL_MODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("INGESTION_WORKERS", 8)
	viper.SetDefault("INGESTION_QUEUE_SIZE", 256)
	viper.SetDefault("INGESTION_CACHE_TTL", 300)
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_FROM", "noreply@ecohub.local")

	return &Config{
		MQTT: MQTTConfig{
			Broker:    viper.GetString("MQTT_BROKER"),
			ClientID:  viper.GetString("MQTT_CLIENT_ID"),
			Namespace: viper.GetString("MQTT_NAMESPACE"),
			Username:  viper.GetString("MQTT_USERNAME"),
			Password:  viper.GetString("MQTT_PASSWORD"),
		},
		Postgres: PostgresConfig{
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetString("POSTGRES_PORT"),
			DBName:   viper.GetString("POSTGRES_DB_NAME"),
			SSLMode:  viper.GetString("POSTGRES_SSL_MODE"),
		},
		Redis: RedisConfig{
			URL:      viper.GetString("REDIS_URL"),
			Password: viper.GetString("REDIS_PASSWORD"),
			Username: viper.GetString("REDIS_USERNAME"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		InfluxDB: InfluxDBConfig{
			Enabled: viper.GetBool("INFLUXDB_ENABLED"),
			URL:     viper.GetString("INFLUXDB_URL"),
			Token:   viper.GetString("INFLUXDB_TOKEN"),
			Org:     viper.GetString("INFLUXDB_ORG"),
			Bucket:  viper.GetString("INFLUXDB_BUCKET"),
		},
		AuthApi: AuthApiConfig{
			URL:   viper.GetString("AUTH_URL"),
			Token: viper.GetString("AUTH_TOKEN"),
		},
		SMTP: SMTPConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			Username: viper.GetString("SMTP_USERNAME"),
			Password: viper.GetString("SMTP_PASSWORD"),
			From:     viper.GetString("SMTP_FROM"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
		Ingestion: IngestionConfig{
			Workers:   viper.GetInt("INGESTION_WORKERS"),
			QueueSize: viper.GetInt("INGESTION_QUEUE_SIZE"),
			CacheTTL:  viper.GetInt("INGESTION_CACHE_TTL"),
		},
	}
}

// ecohub/{zoneId}/sensors
// ecohub/{zoneId}/commands
// ecohub/{zoneId}/command_feedback
// ecohub/{zoneId}/notifications
// ecohub/zones/{zoneId}/status_update
