package config

const EnvPrefix = "SHOPFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	OutboxTransportPubSub = "pubsub"
	OutboxTransportKafka  = "kafka"
)

const (
	EnvAppEnv   = "SHOPFLOW_APP_ENV"
	EnvPort     = "SHOPFLOW_APP_PORT"
	EnvLogLevel = "SHOPFLOW_LOG_LEVEL"

	EnvDBDSN    = "SHOPFLOW_DB_DSN"
	EnvDBDriver = "SHOPFLOW_DB_DRIVER"
	EnvDBHost   = "SHOPFLOW_DB_HOST"
	EnvDBUser   = "SHOPFLOW_DB_USER"
	EnvDBName   = "SHOPFLOW_DB_NAME"

	EnvRedisURL = "SHOPFLOW_REDIS_URL"

	EnvJWTSecret = "SHOPFLOW_JWT_SECRET"
	EnvJWTIssuer = "SHOPFLOW_JWT_ISSUER"

	EnvCartGuestTTL = "SHOPFLOW_CART_GUEST_TTL"

	EnvCheckoutFreeShippingThreshold = "SHOPFLOW_CHECKOUT_FREE_SHIPPING_THRESHOLD"
	EnvCheckoutTaxRate               = "SHOPFLOW_CHECKOUT_TAX_RATE"

	EnvOutboxTransport = "SHOPFLOW_OUTBOX_TRANSPORT"
	EnvKafkaBrokers    = "SHOPFLOW_KAFKA_BROKERS"
)

var fallbackDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
