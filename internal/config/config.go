// Package config monta a configuração da API e do worker.
// Ordem de precedência: defaults < arquivo YAML (CONFIG_FILE) < variáveis de ambiente.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port     string `yaml:"port"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"logLevel"`
	SeedDemo bool   `yaml:"seedDemo"`

	Storage  StorageConfig  `yaml:"storage"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	OTP      OTPConfig      `yaml:"otp"`
}

type StorageConfig struct {
	Driver     string        `yaml:"driver"`
	BadgerPath string        `yaml:"badgerPath"`
	Timeout    time.Duration `yaml:"timeout"`
}

type PostgresConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Name     string `yaml:"name"`
}

// URL monta a connection string no mesmo formato usado pelo docker-compose.
func (p PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.Name)
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

type RabbitMQConfig struct {
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

func (r RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", r.User, r.Pass, r.Host, r.Port)
}

type MongoConfig struct {
	User     string `yaml:"user"`
	Pass     string `yaml:"pass"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`
}

func (m MongoConfig) URI() string {
	if m.User == "" {
		return fmt.Sprintf("mongodb://%s:%s", m.Host, m.Port)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%s", m.User, m.Pass, m.Host, m.Port)
}

// TwilioConfig vazio (sem AccountSID) faz a API cair no provedor stub.
type TwilioConfig struct {
	AccountSID string `yaml:"accountSid"`
	AuthToken  string `yaml:"authToken"`
	VerifySID  string `yaml:"verifySid"`
	Channel    string `yaml:"channel"`
}

func (t TwilioConfig) Enabled() bool { return t.AccountSID != "" }

type OTPConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	RatePerMinute   float64       `yaml:"ratePerMinute"`
	Burst           int           `yaml:"burst"`
	ProviderTimeout time.Duration `yaml:"providerTimeout"`
	StubCode        string        `yaml:"stubCode"`
}

func Default() Config {
	return Config{
		Port:     "8080",
		Env:      "development",
		LogLevel: "info",
		Storage: StorageConfig{
			Driver:     DriverBadger,
			BadgerPath: "./data/ledger",
			Timeout:    5 * time.Second,
		},
		Postgres: PostgresConfig{User: "ledger", Password: "secret123", Host: "localhost", Port: "5432", Name: "secureledger"},
		Redis:    RedisConfig{Host: "localhost", Port: "6379"},
		RabbitMQ: RabbitMQConfig{User: "guest", Pass: "guest", Host: "localhost", Port: "5672"},
		Mongo:    MongoConfig{Host: "localhost", Port: "27017", Database: "secureledger_audit"},
		Twilio:   TwilioConfig{Channel: "whatsapp"},
		OTP: OTPConfig{
			TTL:             10 * time.Minute,
			RatePerMinute:   3,
			Burst:           3,
			ProviderTimeout: 10 * time.Second,
		},
	}
}

// Load lê o .env (se existir), o YAML de CONFIG_FILE (se existir) e por fim o ambiente.
func Load() (*Config, error) {
	// Em produção (Docker/K8s) não existe .env, só variáveis reais.
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Arquivo .env não encontrado, usando variáveis de ambiente do sistema")
	}

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeFile sobrepõe apenas os campos presentes no YAML.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("falha ao ler config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config %s inválida: %w", path, err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("PORT", &cfg.Port)
	str("APP_ENV", &cfg.Env)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("STORAGE_DRIVER", &cfg.Storage.Driver)
	str("BADGER_PATH", &cfg.Storage.BadgerPath)
	str("DB_USER", &cfg.Postgres.User)
	str("DB_PASSWORD", &cfg.Postgres.Password)
	str("DB_HOST", &cfg.Postgres.Host)
	str("DB_PORT", &cfg.Postgres.Port)
	str("DB_NAME", &cfg.Postgres.Name)
	str("REDIS_HOST", &cfg.Redis.Host)
	str("REDIS_PORT", &cfg.Redis.Port)
	str("RABBITMQ_USER", &cfg.RabbitMQ.User)
	str("RABBITMQ_PASS", &cfg.RabbitMQ.Pass)
	str("RABBITMQ_HOST", &cfg.RabbitMQ.Host)
	str("RABBITMQ_PORT", &cfg.RabbitMQ.Port)
	str("MONGO_USER", &cfg.Mongo.User)
	str("MONGO_PASS", &cfg.Mongo.Pass)
	str("MONGO_HOST", &cfg.Mongo.Host)
	str("MONGO_PORT", &cfg.Mongo.Port)
	str("MONGO_DATABASE", &cfg.Mongo.Database)
	str("TWILIO_ACCOUNT_SID", &cfg.Twilio.AccountSID)
	str("TWILIO_AUTH_TOKEN", &cfg.Twilio.AuthToken)
	str("TWILIO_VERIFY_SID", &cfg.Twilio.VerifySID)
	str("TWILIO_CHANNEL", &cfg.Twilio.Channel)
	str("OTP_STUB_CODE", &cfg.OTP.StubCode)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"STORAGE_TIMEOUT", &cfg.Storage.Timeout},
		{"OTP_TTL", &cfg.OTP.TTL},
		{"OTP_PROVIDER_TIMEOUT", &cfg.OTP.ProviderTimeout},
	}
	for _, d := range durations {
		v, ok := lookup(d.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s inválido: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if v, ok := lookup("OTP_RATE_PER_MINUTE"); ok && strings.TrimSpace(v) != "" {
		rate, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("OTP_RATE_PER_MINUTE inválido: %w", err)
		}
		cfg.OTP.RatePerMinute = rate
	}
	if v, ok := lookup("SEED_DEMO"); ok && strings.TrimSpace(v) != "" {
		seed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("SEED_DEMO inválido: %w", err)
		}
		cfg.SeedDemo = seed
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverBadger, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER desconhecido: %q", c.Storage.Driver)
	}
	if c.Twilio.Enabled() && (c.Twilio.AuthToken == "" || c.Twilio.VerifySID == "") {
		return fmt.Errorf("twilio habilitado sem TWILIO_AUTH_TOKEN ou TWILIO_VERIFY_SID")
	}
	if c.Storage.Timeout < 0 || c.OTP.ProviderTimeout < 0 || c.OTP.TTL < 0 {
		return fmt.Errorf("timeouts não podem ser negativos")
	}
	return nil
}

func (c *Config) IsDevelopment() bool { return c.Env == "" || c.Env == "development" }
