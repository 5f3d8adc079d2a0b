package config

const (
	EnvPrefix = "EVENTTIX"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:eventtix.db?_busy_timeout=5000&_foreign_keys=on"
)

const (
	EnvAppEnv    = "EVENTTIX_APP_ENV"
	EnvPort      = "EVENTTIX_APP_PORT"
	EnvDBDSN     = "EVENTTIX_DB_DSN"
	EnvDBDriver  = "EVENTTIX_DB_DRIVER"
	EnvDBHost    = "EVENTTIX_DB_HOST"
	EnvDBUser    = "EVENTTIX_DB_USER"
	EnvDBName    = "EVENTTIX_DB_NAME"
	EnvUseSQLite = "EVENTTIX_USE_SQLITE"
	EnvRedisURL  = "EVENTTIX_REDIS_URL"

	EnvEventingStrict    = "EVENTTIX_EVENTING_STRICT"
	EnvGCPProjectID      = "EVENTTIX_GCP_PROJECT_ID"
	EnvPubSubDomainTopic = "EVENTTIX_PUBSUB_DOMAIN_EVENTS_TOPIC"
	EnvCronInterval      = "EVENTTIX_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
