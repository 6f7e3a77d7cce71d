package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Cart         CartConfig
	Checkout     CheckoutConfig
	Payment      PaymentConfig
	RateLimit    RateLimitConfig
	Outbox       OutboxConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Outbox.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPFLOW_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SHOPFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPFLOW_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SHOPFLOW_LOG_FORMAT" default:"json"`
	CORSOrigins  string `envconfig:"SHOPFLOW_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// ConsoleLogs reports whether logs should be human-readable instead of JSON.
func (a AppConfig) ConsoleLogs() bool {
	return strings.EqualFold(a.LogFormat, "console")
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	return splitCSV(a.CORSOrigins)
}

type ServiceConfig struct {
	Kind string `envconfig:"SHOPFLOW_SERVICE_KIND" default:"api"`
	// MetricsAddr is where background workers expose /metrics. Empty disables it.
	MetricsAddr string `envconfig:"SHOPFLOW_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPFLOW_DB_DSN"`
	Driver string `envconfig:"SHOPFLOW_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SHOPFLOW_DB_HOST"`
	Port     int    `envconfig:"SHOPFLOW_DB_PORT" default:"5432"`
	User     string `envconfig:"SHOPFLOW_DB_USER"`
	Password string `envconfig:"SHOPFLOW_DB_PASSWORD"`
	Name     string `envconfig:"SHOPFLOW_DB_NAME"`
	SSLMode  string `envconfig:"SHOPFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"SHOPFLOW_DB_SLOW_QUERY" default:"500ms"`
}

func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPFLOW_REDIS_URL"`
	Address      string        `envconfig:"SHOPFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHOPFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHOPFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHOPFLOW_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SHOPFLOW_AUTO_MIGRATE" default:"false"`
}

type CartConfig struct {
	GuestTTL   time.Duration `envconfig:"SHOPFLOW_CART_GUEST_TTL" default:"168h"`
	MaxRetries int           `envconfig:"SHOPFLOW_CART_MAX_RETRIES" default:"3"`
}

type CheckoutConfig struct {
	FreeShippingThreshold decimal.Decimal `envconfig:"SHOPFLOW_CHECKOUT_FREE_SHIPPING_THRESHOLD" default:"100"`
	FlatShipping          decimal.Decimal `envconfig:"SHOPFLOW_CHECKOUT_FLAT_SHIPPING" default:"10"`
	TaxRate               decimal.Decimal `envconfig:"SHOPFLOW_CHECKOUT_TAX_RATE" default:"0.08"`
	OrderNumberRetries    int             `envconfig:"SHOPFLOW_CHECKOUT_ORDER_NUMBER_RETRIES" default:"5"`
}

type PaymentConfig struct {
	SuccessRate       float64 `envconfig:"SHOPFLOW_PAYMENT_SUCCESS_RATE" default:"0.9"`
	CryptoSuccessRate float64 `envconfig:"SHOPFLOW_PAYMENT_CRYPTO_SUCCESS_RATE" default:"0.8"`
}

type RateLimitConfig struct {
	CartWindow time.Duration `envconfig:"SHOPFLOW_RATE_LIMIT_CART_WINDOW" default:"1m"`
	CartLimit  int64         `envconfig:"SHOPFLOW_RATE_LIMIT_CART_LIMIT" default:"120"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"SHOPFLOW_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"SHOPFLOW_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"SHOPFLOW_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Transport      string `envconfig:"SHOPFLOW_OUTBOX_TRANSPORT" default:"pubsub"`
}

func (o OutboxConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(o.Transport)) {
	case OutboxTransportPubSub, OutboxTransportKafka:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvOutboxTransport, OutboxTransportPubSub, OutboxTransportKafka)
	}
}

// UsesKafka reports whether outbox events are published to Kafka instead of Pub/Sub.
func (o OutboxConfig) UsesKafka() bool {
	return strings.EqualFold(strings.TrimSpace(o.Transport), OutboxTransportKafka)
}

type GCPConfig struct {
	ProjectID       string `envconfig:"SHOPFLOW_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"SHOPFLOW_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic       string `envconfig:"SHOPFLOW_PUBSUB_ORDERS_TOPIC" default:"sf-order-events"`
	NotificationTopic string `envconfig:"SHOPFLOW_PUBSUB_NOTIFICATION_TOPIC" default:"sf-notification-events"`
}

type KafkaConfig struct {
	Brokers           string        `envconfig:"SHOPFLOW_KAFKA_BROKERS" default:"localhost:9092"`
	OrdersTopic       string        `envconfig:"SHOPFLOW_KAFKA_ORDERS_TOPIC" default:"order-events"`
	NotificationTopic string        `envconfig:"SHOPFLOW_KAFKA_NOTIFICATION_TOPIC" default:"notification-events"`
	WriteTimeout      time.Duration `envconfig:"SHOPFLOW_KAFKA_WRITE_TIMEOUT" default:"10s"`
}

// BrokerList returns the configured brokers in declaration order.
func (k KafkaConfig) BrokerList() []string {
	return splitCSV(k.Brokers)
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"SHOPFLOW_CRON_INTERVAL" default:"1h"`
	LockTTL             time.Duration `envconfig:"SHOPFLOW_CRON_LOCK_TTL" default:"10m"`
	OutboxRetentionDays int           `envconfig:"SHOPFLOW_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	NotificationDays    int           `envconfig:"SHOPFLOW_CRON_NOTIFICATION_RETENTION_DAYS" default:"90"`
	GuestCartBatchSize  int           `envconfig:"SHOPFLOW_CRON_GUEST_CART_BATCH" default:"500"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:shopflow.db?cache=shared"
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range fallbackDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
