package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config содержит параметры конфигурации приложения
type Config struct {
	DBHost     string `env:"PG_HOST,required"`     // Хост базы данных
	DBPort     string `env:"PG_PORT,required"`     // Порт базы данных
	DBUser     string `env:"PG_USER,required"`     // Пользователь базы данных
	DBPassword string `env:"PG_PASSWORD,required"` // Пароль базы данных
	DBName     string `env:"PG_DBNAME,required"`   // Имя базы данных
	DBSSLMode  string `env:"PG_SSLMODE" envDefault:"disable"`

	HTTPPort string `env:"FLASK_PORT,required"` // Порт HTTP сервера
	GRPCPort string `env:"GRPC_PORT" envDefault:":50051"`

	KinopoiskToken         string        `env:"KINOPOISK_API_TOKEN"`
	KinopoiskURL           string        `env:"KINOPOISK_API_URL" envDefault:"https://api.kinopoisk.dev/v1.4/movie/search"`
	KinopoiskTimeout       time.Duration `env:"KINOPOISK_TIMEOUT" envDefault:"10s"`
	KinopoiskLookupTimeout time.Duration `env:"KINOPOISK_LOOKUP_TIMEOUT" envDefault:"3s"` // Предел ожидания рейтинга на странице фильма

	ServiceName   string   `env:"SERVICE_NAME" envDefault:"moviedb"`
	LogBufferSize int      `env:"LOG_BUFFER_SIZE" envDefault:"100"`
	LogLevel      string   `env:"LOG_LEVEL" envDefault:"info"`
	LogDir        string   `env:"LOG_DIR" envDefault:"logs"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:","` // Пусто - логи в Kafka не отправляются
	KafkaTopic    string   `env:"KAFKA_TOPIC" envDefault:"logs"`

	RatingRefreshInterval time.Duration `env:"RATING_REFRESH_INTERVAL" envDefault:"1h"`
	HealthCheckInterval   time.Duration `env:"HEALTH_CHECK_INTERVAL" envDefault:"15s"`
}

// LoadConfig загружает конфигурацию из .env файла и переменных окружения
func LoadConfig() (*Config, error) {
	// Отсутствие .env не ошибка: переменные могут быть заданы окружением
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	return parse(env.Options{})
}

// LoadFromMap собирает конфигурацию из переданного набора переменных, не трогая окружение процесса
func LoadFromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Некорректный размер буфера заменяем значением по умолчанию
	if cfg.LogBufferSize <= 0 {
		cfg.LogBufferSize = 100
	}

	brokers := cfg.KafkaBrokers[:0]
	for _, b := range cfg.KafkaBrokers {
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	cfg.KafkaBrokers = brokers

	return &cfg, nil
}

// DSN возвращает строку подключения к PostgreSQL
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// HTTPAddr возвращает адрес для HTTP сервера; FLASK_PORT может быть как "5000", так и ":5000"
func (c *Config) HTTPAddr() string {
	if len(c.HTTPPort) > 0 && c.HTTPPort[0] == ':' {
		return c.HTTPPort
	}
	return ":" + c.HTTPPort
}

// KafkaEnabled сообщает, настроена ли отправка логов в Kafka
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
