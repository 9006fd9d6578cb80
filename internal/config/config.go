package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port    int    `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret    string `yaml:"secret"`
	Issuer    string `yaml:"issuer"`
	AccessTTL string `yaml:"access_ttl"`
}

// OTPPurposeConfig configures one code purpose: digit length and TTL.
type OTPPurposeConfig struct {
	Length int    `yaml:"length"`
	TTL    string `yaml:"ttl"`
}

type OTPConfig struct {
	MaxAttempts  int                         `yaml:"max_attempts"`
	ResendWindow string                      `yaml:"resend_window"`
	Purposes     map[string]OTPPurposeConfig `yaml:"purposes"`
}

type SessionConfig struct {
	RefreshTTL      string `yaml:"refresh_ttl"`
	RetentionGrace  string `yaml:"retention_grace"`
	CleanupInterval string `yaml:"cleanup_interval"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type ResendConfig struct {
	APIKey      string `yaml:"api_key"`
	FromAddress string `yaml:"from_address"`
}

type KafkaConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type CasbinConfig struct {
	ModelPath string `yaml:"model_path"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type ConfigFile struct {
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	OTP       OTPConfig       `yaml:"otp"`
	Session   SessionConfig   `yaml:"session"`
	Twilio    TwilioConfig    `yaml:"twilio"`
	Resend    ResendConfig    `yaml:"resend"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Casbin    CasbinConfig    `yaml:"casbin"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// OTPPurpose is the parsed per-purpose code configuration consulted by the
// verification code engine.
type OTPPurpose struct {
	Length int
	TTL    time.Duration
}

type Config struct {
	Port            string
	GinMode         string
	DSN             string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	JWTSecret       string
	JWTIssuer       string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	RetentionGrace  time.Duration
	CleanupInterval time.Duration
	OTPMaxAttempts  int
	OTPResendWindow time.Duration
	OTPPurposes     map[string]OTPPurpose
	TwilioSID       string
	TwilioToken     string
	TwilioFrom      string
	ResendAPIKey    string
	ResendFrom      string
	KafkaBroker     string
	KafkaTopic      string
	KafkaUsername   string
	KafkaPassword   string
	CasbinModelPath string
	RateLimitRPS    float64
	RateLimitBurst  int
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads config/config.yml, applies environment overrides for secrets,
// and parses all duration fields.
func Load() (*Config, error) {
	configFile, err := loadConfigFile(env("CONFIG_PATH", "config/config.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	accTTL, err := time.ParseDuration(configFile.JWT.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT access TTL: %w", err)
	}

	refTTL, err := time.ParseDuration(configFile.Session.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid session refresh TTL: %w", err)
	}

	grace, err := time.ParseDuration(configFile.Session.RetentionGrace)
	if err != nil {
		return nil, fmt.Errorf("invalid session retention grace: %w", err)
	}

	sweep, err := time.ParseDuration(configFile.Session.CleanupInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup interval: %w", err)
	}

	resWnd, err := time.ParseDuration(configFile.OTP.ResendWindow)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP resend window: %w", err)
	}

	purposes := make(map[string]OTPPurpose, len(configFile.OTP.Purposes))
	for name, pc := range configFile.OTP.Purposes {
		ttl, err := time.ParseDuration(pc.TTL)
		if err != nil {
			return nil, fmt.Errorf("invalid OTP TTL for purpose %q: %w", name, err)
		}
		purposes[name] = OTPPurpose{Length: pc.Length, TTL: ttl}
	}

	return &Config{
		Port:            fmt.Sprintf("%d", configFile.App.Port),
		GinMode:         configFile.App.GinMode,
		DSN:             env("DATABASE_DSN", configFile.Database.DSN),
		RedisAddr:       env("REDIS_ADDR", configFile.Redis.Addr),
		RedisPassword:   env("REDIS_PASSWORD", configFile.Redis.Password),
		RedisDB:         configFile.Redis.DB,
		JWTSecret:       env("JWT_SECRET", configFile.JWT.Secret),
		JWTIssuer:       configFile.JWT.Issuer,
		AccessTTL:       accTTL,
		RefreshTTL:      refTTL,
		RetentionGrace:  grace,
		CleanupInterval: sweep,
		OTPMaxAttempts:  configFile.OTP.MaxAttempts,
		OTPResendWindow: resWnd,
		OTPPurposes:     purposes,
		TwilioSID:       env("TWILIO_ACCOUNT_SID", configFile.Twilio.AccountSID),
		TwilioToken:     env("TWILIO_AUTH_TOKEN", configFile.Twilio.AuthToken),
		TwilioFrom:      configFile.Twilio.FromNumber,
		ResendAPIKey:    env("RESEND_API_KEY", configFile.Resend.APIKey),
		ResendFrom:      configFile.Resend.FromAddress,
		KafkaBroker:     env("KAFKA_BROKER", configFile.Kafka.Broker),
		KafkaTopic:      configFile.Kafka.Topic,
		KafkaUsername:   env("KAFKA_USERNAME", configFile.Kafka.Username),
		KafkaPassword:   env("KAFKA_PASSWORD", configFile.Kafka.Password),
		CasbinModelPath: configFile.Casbin.ModelPath,
		RateLimitRPS:    configFile.RateLimit.RequestsPerSecond,
		RateLimitBurst:  configFile.RateLimit.Burst,
	}, nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}
