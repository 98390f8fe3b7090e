// Package config предоставляет структуры и функции для парсинга и загрузки конфига.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env                     string        `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string        `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"` // пусто — каталог в памяти
	MigrationsPath          string        `yaml:"migrations_path" env-default:"./migrations"`
	FixturesPath            string        `yaml:"fixtures_path"` // пусто — встроенные фикстуры
	PublicBaseURL           string        `yaml:"public_base_url" env-default:"http://localhost:5173"`
	CatalogCacheTTL         time.Duration `yaml:"catalog_cache_ttl" env-default:"10m"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Auth                    Auth     `yaml:"auth"`
	RabbitMQ                RabbitMQ `yaml:"rabbitmq"`
	SMTP                    SMTP     `yaml:"smtp"`
	Billing                 Billing  `yaml:"billing"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес означает хранение состояния в памяти процесса.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с токеном сессии.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY" env-required:"true"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Auth настройки менеджера сессий.
type Auth struct {
	LockoutThreshold   int           `yaml:"lockout_threshold" env-default:"5"`
	LockoutDuration    time.Duration `yaml:"lockout_duration" env-default:"15m"`
	SimulatedLatency   time.Duration `yaml:"simulated_latency" env-default:"300ms"`
	AutoVerify         bool          `yaml:"auto_verify" env-default:"true"`
	SessionPoolSize    int           `yaml:"session_pool_size" env-default:"1024"`
	LoginRatePerSecond float64       `yaml:"login_rate_per_second" env-default:"5"`
	LoginBurst         int           `yaml:"login_burst" env-default:"10"`
}

// RabbitMQ настройки брокера уведомлений. Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL               string        `yaml:"url" env:"RABBITMQ_URL"`
	MaxRetries        int           `yaml:"max_retries" env-default:"5"`
	RetryDelay        time.Duration `yaml:"retry_delay" env-default:"2s"`
	Exchange          string        `yaml:"exchange" env:"RABBITMQ_EXCHANGE" env-default:"notifications"`
	VerificationQueue string        `yaml:"verification_queue" env-default:"notification.verification"`
	InvoiceQueue      string        `yaml:"invoice_queue" env-default:"notification.invoice"`
	Prefetch          int           `yaml:"prefetch" env-default:"10"`
}

// SMTP настройки отправки писем.
type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM"`
}

// Billing настройки планировщика выставления счетов.
type Billing struct {
	Interval time.Duration `yaml:"interval" env-default:"1h"`
}

// Load читает конфиг из файла path.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, path)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Auth.LockoutThreshold < 1 {
		return nil, fmt.Errorf("%s: auth.lockout_threshold must be positive", op)
	}
	return &cfg, nil
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  Password: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  JWTSecretKey: %s\n"+
			"  TokenTTL: %s\n"+
			"Auth:\n"+
			"  LockoutThreshold: %d\n"+
			"  LockoutDuration: %s\n"+
			"  AutoVerify: %t\n"+
			"RabbitMQ: %s\n"+
			"SMTP: %s:%s\n",
		c.Env,
		mask(c.StorageConnectionString),
		c.AddressRedis,
		mask(c.Password),
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		mask(c.JWTSecretKey),
		c.TokenTTL,
		c.Auth.LockoutThreshold,
		c.Auth.LockoutDuration,
		c.Auth.AutoVerify,
		mask(c.RabbitMQ.URL),
		c.SMTP.Host,
		c.SMTP.Port,
	)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
