package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	PasswordSchemePlain  = "plain"
	PasswordSchemeBcrypt = "bcrypt"

	EventsBackendNone     = "none"
	EventsBackendRabbitMQ = "rabbitmq"
	EventsBackendPubSub   = "pubsub"
)

type Config struct {
	ServerPort     int
	JWTSecret      string
	PasswordScheme string
	Database       DatabaseConfig
	Log            LogConfig
	Events         EventsConfig
	Client         ClientConfig
}

type DatabaseConfig struct {
	// URL, when set, is used verbatim and the individual parts are ignored.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type LogConfig struct {
	Level  string
	Format string
}

type EventsConfig struct {
	Backend  string
	Channel  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

// ClientConfig holds settings used by the terminal client commands.
type ClientConfig struct {
	APIURL    string
	StateFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		URL:      strings.TrimSpace(getEnv("DATABASE_URL", "")),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "ailice"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "accounts"),
		UseSSL:   getEnvBool("DB_SSL", false),
	}

	eventsConfig := EventsConfig{
		Backend: strings.ToLower(getEnv("EVENTS_BACKEND", EventsBackendNone)),
		Channel: getEnv("EVENTS_CHANNEL", "ailice.accounts"),
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
			PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 0),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
		},
	}

	return Config{
		ServerPort:     getEnvInt("SERVER_PORT", 8080),
		JWTSecret:      strings.TrimSpace(getEnv("JWT_SECRET", "")),
		PasswordScheme: strings.ToLower(getEnv("PASSWORD_SCHEME", PasswordSchemePlain)),
		Database:       dbConfig,
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Events: eventsConfig,
		Client: ClientConfig{
			APIURL:    strings.TrimRight(getEnv("AILICE_API_URL", "http://localhost:8080"), "/"),
			StateFile: getEnv("AILICE_STATE_FILE", defaultStateFile()),
		},
	}
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "ailice", "state.db")
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}
