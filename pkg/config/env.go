package config

// EnvPrefix is intentionally empty; every field carries its fully
// qualified ACCT_* variable name in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names, exported so tests and tooling reference
// one definition.
const (
	EnvAppEnv   = "ACCT_APP_ENV"
	EnvPort     = "ACCT_APP_PORT"
	EnvLogLevel = "ACCT_LOG_LEVEL"

	EnvDBDSN    = "ACCT_DB_DSN"
	EnvRedisURL = "ACCT_REDIS_URL"

	EnvKSeFAPIURL       = "ACCT_KSEF_API_URL"
	EnvKSeFSendPath     = "ACCT_KSEF_SEND_PATH"
	EnvKSeFCertBundle   = "ACCT_KSEF_CERT_B64"
	EnvKSeFCertPEM      = "ACCT_KSEF_CERT_PEM_B64"
	EnvKSeFKeyPEM       = "ACCT_KSEF_KEY_PEM_B64"
	EnvKSeFCertPassword = "ACCT_KSEF_CERT_PASSWORD"

	EnvJobFailThreshold = "ACCT_JOB_FAIL_THRESHOLD"
	EnvJobDefaultLimit  = "ACCT_JOB_DEFAULT_LIMIT"
	EnvJobMaxLimit      = "ACCT_JOB_MAX_LIMIT"
)
