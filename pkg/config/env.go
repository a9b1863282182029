package config

// EnvPrefix scopes envconfig lookups; every field also carries its full key.
const EnvPrefix = "CATCHY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	PaymentGatewaySimulated = "simulated"
	PaymentGatewaySquare    = "square"
)

const (
	EnvAppEnv                 = "CATCHY_APP_ENV"
	EnvPort                   = "CATCHY_APP_PORT"
	EnvDBDSN                  = "CATCHY_DB_DSN"
	EnvDBHost                 = "CATCHY_DB_HOST"
	EnvDBUser                 = "CATCHY_DB_USER"
	EnvDBName                 = "CATCHY_DB_NAME"
	EnvRedisURL               = "CATCHY_REDIS_URL"
	EnvJWTSecret              = "CATCHY_JWT_SECRET"
	EnvJWTIssuer              = "CATCHY_JWT_ISSUER"
	EnvJWTExpMins             = "CATCHY_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CATCHY_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "CATCHY_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic      = "CATCHY_PUBSUB_ORDERS_TOPIC"
	EnvPubSubUsersTopic       = "CATCHY_PUBSUB_USERS_TOPIC"
	EnvPubSubNotificationSub  = "CATCHY_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubUserEventsSub    = "CATCHY_PUBSUB_USER_EVENTS_SUBSCRIPTION"
	EnvPubSubAnalyticsSub     = "CATCHY_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvPaymentsGateway        = "CATCHY_PAYMENTS_GATEWAY"
	EnvPaymentsSettlement     = "CATCHY_PAYMENTS_SETTLEMENT_DELAY"
	EnvCORSAllowedOrigins     = "CATCHY_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
