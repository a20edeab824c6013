package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   Server
	Database Database
	Redis    Redis
	JWT      JWT
	Queue    Queue
	Logger   Logger
}

type Server struct {
	Addr string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN собирает строку подключения к PostgreSQL.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type JWT struct {
	AccessSecret string
}

type Queue struct {
	Store          string // postgres | memory
	NotifyBackend  string // memory | redis
	EntryTTL       time.Duration
	SweepSpec      string
	PairMaxRetries int
}

type Logger struct {
	Level  string
	Pretty bool
}

// LoadEnv подгружает .env, если окружение не выставлено заранее (ENV_CHEK).
func LoadEnv(paths ...string) error {
	if os.Getenv("ENV_CHEK") != "" {
		return nil
	}
	return godotenv.Load(paths...)
}

// Load читает конфигурацию из переменных окружения.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	c := &Config{
		Server: Server{Addr: v.GetString("HTTP_ADDR")},
		Database: Database{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWT{AccessSecret: v.GetString("JWT_ACCESS_SECRET")},
		Queue: Queue{
			Store:          v.GetString("QUEUE_STORE"),
			NotifyBackend:  v.GetString("NOTIFY_BACKEND"),
			EntryTTL:       v.GetDuration("QUEUE_ENTRY_TTL"),
			SweepSpec:      v.GetString("QUEUE_SWEEP_SPEC"),
			PairMaxRetries: v.GetInt("QUEUE_PAIR_MAX_RETRIES"),
		},
		Logger: Logger{
			Level:  v.GetString("LOG_LEVEL"),
			Pretty: v.GetBool("LOG_PRETTY"),
		},
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("QUEUE_STORE", "postgres")
	v.SetDefault("NOTIFY_BACKEND", "memory")
	v.SetDefault("QUEUE_ENTRY_TTL", 30*time.Minute)
	v.SetDefault("QUEUE_SWEEP_SPEC", "0 * * * * *")
	v.SetDefault("QUEUE_PAIR_MAX_RETRIES", 5)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
}

func (c *Config) validate() error {
	switch c.Queue.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown QUEUE_STORE %q", c.Queue.Store)
	}
	switch c.Queue.NotifyBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown NOTIFY_BACKEND %q", c.Queue.NotifyBackend)
	}
	if c.JWT.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if c.Queue.PairMaxRetries < 1 {
		return fmt.Errorf("QUEUE_PAIR_MAX_RETRIES must be positive, got %d", c.Queue.PairMaxRetries)
	}
	return nil
}
