package config

const EnvPrefix = "USERBRIDGE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "USERBRIDGE_APP_ENV"
	EnvPort     = "USERBRIDGE_APP_PORT"
	EnvLogLevel = "USERBRIDGE_LOG_LEVEL"

	EnvDBDSN  = "USERBRIDGE_DB_DSN"
	EnvDBHost = "USERBRIDGE_DB_HOST"
	EnvDBPort = "USERBRIDGE_DB_PORT"
	EnvDBUser = "USERBRIDGE_DB_USER"
	EnvDBPass = "USERBRIDGE_DB_PASSWORD"
	EnvDBName = "USERBRIDGE_DB_NAME"

	EnvRedisURL = "USERBRIDGE_REDIS_URL"

	EnvKeycloakServerURL               = "USERBRIDGE_KEYCLOAK_SERVER_URL"
	EnvKeycloakRealm                   = "USERBRIDGE_KEYCLOAK_REALM"
	EnvKeycloakClientID                = "USERBRIDGE_KEYCLOAK_CLIENT_ID"
	EnvKeycloakClientSecret            = "USERBRIDGE_KEYCLOAK_CLIENT_SECRET"
	EnvKeycloakVerificationRedirectURL = "USERBRIDGE_KEYCLOAK_VERIFICATION_REDIRECT_URL"
)

// legacyDBEnvVars must all be set when no DSN is provided.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
