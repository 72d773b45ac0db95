package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	NotifierLog   = "log"
	NotifierSMTP  = "smtp"
	NotifierKafka = "kafka"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	AppName  string `env:"APP_NAME,  default=Storefront"`

	Token    TokenConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Notifier NotifierConfig
	OTP      OTPConfig
	Admin    AdminConfig
	App      AppConfig
}

type TokenConfig struct {
	Secret string        `env:"JWT_SECRET"`
	Issuer string        `env:"JWT_ISSUER, default=storefront-identity"`
	TTL    time.Duration `env:"TOKEN_TTL,  default=24h"`
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,      default=storefront"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type NotifierConfig struct {
	Driver  string `env:"NOTIFIER_DRIVER,   default=log"`
	LogBody bool   `env:"NOTIFIER_LOG_BODY, default=false"`

	SMTPHost     string        `env:"SMTP_HOST"`
	SMTPPort     int           `env:"SMTP_PORT,    default=587"`
	SMTPUsername string        `env:"SMTP_USERNAME"`
	SMTPPassword string        `env:"SMTP_PASSWORD"`
	SMTPFrom     string        `env:"SMTP_FROM"`
	SMTPTimeout  time.Duration `env:"SMTP_TIMEOUT, default=10s"`

	KafkaBrokers []string `env:"KAFKA_BROKERS, default=localhost:9092"`
	KafkaTopic   string   `env:"KAFKA_TOPIC,   default=identity.mail"`
}

type OTPConfig struct {
	TTL          time.Duration `env:"OTP_TTL,            default=5m"`
	Cooldown     time.Duration `env:"OTP_COOLDOWN,       default=60s"`
	Window       time.Duration `env:"OTP_WINDOW,         default=1h"`
	MaxPerWindow int           `env:"OTP_MAX_PER_WINDOW, default=5"`
}

type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
	Name     string `env:"ADMIN_NAME, default=Administrator"`
}

type AppConfig struct {
	PhoneRegion   string `env:"PHONE_REGION,   default=US"`
	FrontendURL   string `env:"FRONTEND_URL,   default=http://localhost:3000"`
	SupportEmail  string `env:"SUPPORT_EMAIL,  default=support@example.com"`
	EventWorkers  int    `env:"EVENT_WORKERS,  default=8"`
	BcryptCost    int    `env:"BCRYPT_COST,    default=10"`
	ImageBaseURL  string `env:"IMAGE_BASE_URL, default=/images"`
	MaxImageBytes int64  `env:"MAX_IMAGE_BYTES, default=5242880"`
}

// IsProduction reports whether error details must be hidden.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	var errs []error
	if c.Token.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.Notifier.Driver {
	case NotifierLog:
	case NotifierSMTP:
		if c.Notifier.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required for the smtp notifier"))
		}
	case NotifierKafka:
		if len(c.Notifier.KafkaBrokers) == 0 || c.Notifier.KafkaTopic == "" {
			errs = append(errs, errors.New("KAFKA_BROKERS and KAFKA_TOPIC are required for the kafka notifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFIER_DRIVER %q", c.Notifier.Driver))
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// Load reads an optional .env file, then the environment.
func Load(ctx context.Context, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables that are already set.
		_ = godotenv.Load(f)
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
