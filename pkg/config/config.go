package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	Orders       OrdersConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Ops          OpsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"EVENTTIX_APP_ENV" required:"true"`
	Port         string `envconfig:"EVENTTIX_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"EVENTTIX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EVENTTIX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"EVENTTIX_SERVICE_KIND" default:"cron-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"EVENTTIX_DB_DSN"`
	Driver string `envconfig:"EVENTTIX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"EVENTTIX_DB_HOST"`
	LegacyPort     int    `envconfig:"EVENTTIX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"EVENTTIX_DB_USER"`
	LegacyPassword string `envconfig:"EVENTTIX_DB_PASSWORD"`
	LegacyName     string `envconfig:"EVENTTIX_DB_NAME"`
	LegacySSLMode  string `envconfig:"EVENTTIX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EVENTTIX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EVENTTIX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EVENTTIX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EVENTTIX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite engine.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"EVENTTIX_REDIS_URL"`
	Address      string        `envconfig:"EVENTTIX_REDIS_ADDR"`
	Password     string        `envconfig:"EVENTTIX_REDIS_PASSWORD"`
	DB           int           `envconfig:"EVENTTIX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EVENTTIX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EVENTTIX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EVENTTIX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EVENTTIX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EVENTTIX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"EVENTTIX_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"EVENTTIX_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	// Strict makes a failed domain event write abort the surrounding operation.
	Strict bool `envconfig:"EVENTTIX_EVENTING_STRICT" default:"false"`
}

type OrdersConfig struct {
	PurchaseCommunicationTTL time.Duration `envconfig:"EVENTTIX_ORDERS_PURCHASE_COMMUNICATION_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"EVENTTIX_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"EVENTTIX_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"EVENTTIX_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainEventsTopic string `envconfig:"EVENTTIX_PUBSUB_DOMAIN_EVENTS_TOPIC" default:"eventtix-domain-events"`
	OrdersTopic       string `envconfig:"EVENTTIX_PUBSUB_ORDERS_TOPIC"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"EVENTTIX_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"EVENTTIX_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"EVENTTIX_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"EVENTTIX_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"EVENTTIX_CRON_INTERVAL" default:"1m"`
	LockTTL         time.Duration `envconfig:"EVENTTIX_CRON_LOCK_TTL" default:"5m"`
	ReaperBatchSize int           `envconfig:"EVENTTIX_CRON_REAPER_BATCH_SIZE" default:"500"`
}

type OpsConfig struct {
	Port string `envconfig:"EVENTTIX_OPS_PORT" default:"9090"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
