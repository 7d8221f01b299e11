package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	Keycloak      KeycloakConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Keycloak.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"USERBRIDGE_APP_ENV" required:"true"`
	Port         string   `envconfig:"USERBRIDGE_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"USERBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"USERBRIDGE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"USERBRIDGE_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"USERBRIDGE_DB_DSN"`
	Driver string `envconfig:"USERBRIDGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"USERBRIDGE_DB_HOST"`
	LegacyPort     int    `envconfig:"USERBRIDGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"USERBRIDGE_DB_USER"`
	LegacyPassword string `envconfig:"USERBRIDGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"USERBRIDGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"USERBRIDGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"USERBRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"USERBRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"USERBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"USERBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"USERBRIDGE_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"USERBRIDGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"USERBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"USERBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"USERBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"USERBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"USERBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"USERBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"USERBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"USERBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// KeycloakConfig holds the realm coordinates and the confidential client used
// for both user token grants and admin API calls.
type KeycloakConfig struct {
	ServerURL               string        `envconfig:"USERBRIDGE_KEYCLOAK_SERVER_URL" required:"true"`
	Realm                   string        `envconfig:"USERBRIDGE_KEYCLOAK_REALM" required:"true"`
	ClientID                string        `envconfig:"USERBRIDGE_KEYCLOAK_CLIENT_ID" required:"true"`
	ClientSecret            string        `envconfig:"USERBRIDGE_KEYCLOAK_CLIENT_SECRET" required:"true"`
	VerificationRedirectURL string        `envconfig:"USERBRIDGE_KEYCLOAK_VERIFICATION_REDIRECT_URL"`
	HTTPTimeout             time.Duration `envconfig:"USERBRIDGE_KEYCLOAK_HTTP_TIMEOUT" default:"10s"`
}

func (k KeycloakConfig) validate() error {
	u, err := url.Parse(k.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute url", EnvKeycloakServerURL)
	}
	if k.VerificationRedirectURL != "" {
		if _, err := url.ParseRequestURI(k.VerificationRedirectURL); err != nil {
			return fmt.Errorf("%s is invalid: %w", EnvKeycloakVerificationRedirectURL, err)
		}
	}
	return nil
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"USERBRIDGE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit int           `envconfig:"USERBRIDGE_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"USERBRIDGE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"USERBRIDGE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
