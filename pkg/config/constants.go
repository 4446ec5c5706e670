package config

// EnvPrefix is empty: every variable already carries the SHOWCART_ prefix
// in its envconfig tag, which keeps grep-ability over implicit prefixing.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names shared between Load, tests, and ops docs.
const (
	EnvAppEnv                 = "SHOWCART_APP_ENV"
	EnvPort                   = "SHOWCART_APP_PORT"
	EnvDBDSN                  = "SHOWCART_DB_DSN"
	EnvDBHost                 = "SHOWCART_DB_HOST"
	EnvDBUser                 = "SHOWCART_DB_USER"
	EnvDBName                 = "SHOWCART_DB_NAME"
	EnvRedisURL               = "SHOWCART_REDIS_URL"
	EnvJWTSecret              = "SHOWCART_JWT_SECRET"
	EnvJWTIssuer              = "SHOWCART_JWT_ISSUER"
	EnvJWTExpMins             = "SHOWCART_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "SHOWCART_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "SHOWCART_GCP_PROJECT_ID"
	EnvPubSubOrderTopic       = "SHOWCART_PUBSUB_ORDER_TOPIC"
	EnvPubSubNotificationSub  = "SHOWCART_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubAnalyticsSub     = "SHOWCART_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvStripeAPIKey           = "SHOWCART_STRIPE_API_KEY"
	EnvStripeSecret           = "SHOWCART_STRIPE_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
