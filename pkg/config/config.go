package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	KSeF         KSeFConfig
	Job          JobConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.KSeF.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Job.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ACCT_APP_ENV" required:"true"`
	Port         string `envconfig:"ACCT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ACCT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ACCT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind        string   `envconfig:"ACCT_SERVICE_KIND" default:"api"`
	CORSOrigins []string `envconfig:"ACCT_CORS_ORIGINS"`
}

type DBConfig struct {
	DSN    string `envconfig:"ACCT_DB_DSN" required:"true"`
	Driver string `envconfig:"ACCT_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"ACCT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ACCT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ACCT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ACCT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ACCT_REDIS_URL"`
	Address      string        `envconfig:"ACCT_REDIS_ADDR"`
	Password     string        `envconfig:"ACCT_REDIS_PASSWORD"`
	DB           int           `envconfig:"ACCT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ACCT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ACCT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ACCT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ACCT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ACCT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// KSeFConfig carries the submission endpoint and client certificate material.
// The certificate arrives either as one base64 PKCS#12 bundle or as a
// separate base64 PEM certificate/key pair.
type KSeFConfig struct {
	BaseURL        string        `envconfig:"ACCT_KSEF_API_URL"`
	SendPath       string        `envconfig:"ACCT_KSEF_SEND_PATH" default:"/invoices"`
	CertBundleB64  string        `envconfig:"ACCT_KSEF_CERT_B64"`
	CertPEMB64     string        `envconfig:"ACCT_KSEF_CERT_PEM_B64"`
	KeyPEMB64      string        `envconfig:"ACCT_KSEF_KEY_PEM_B64"`
	CertPassword   string        `envconfig:"ACCT_KSEF_CERT_PASSWORD"`
	RequestTimeout time.Duration `envconfig:"ACCT_KSEF_REQUEST_TIMEOUT" default:"30s"`
}

// Configured reports whether the endpoint and some certificate material are set.
func (k KSeFConfig) Configured() bool {
	return k.BaseURL != "" && k.HasCertMaterial()
}

// HasCertMaterial reports whether either the bundle or the PEM pair is present.
func (k KSeFConfig) HasCertMaterial() bool {
	return k.CertBundleB64 != "" || (k.CertPEMB64 != "" && k.KeyPEMB64 != "")
}

// CertSize returns the decoded byte length of the configured certificate
// material, preferring the bundle when both forms are present.
func (k KSeFConfig) CertSize() (int, error) {
	raw := k.CertBundleB64
	if raw == "" {
		raw = k.CertPEMB64
	}
	if raw == "" {
		return 0, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return 0, fmt.Errorf("decoding certificate material: %w", err)
	}
	return len(decoded), nil
}

func (k KSeFConfig) validate() error {
	if k.CertPEMB64 != "" && k.KeyPEMB64 == "" {
		return fmt.Errorf("%s requires %s", EnvKSeFCertPEM, EnvKSeFKeyPEM)
	}
	if k.KeyPEMB64 != "" && k.CertPEMB64 == "" {
		return fmt.Errorf("%s requires %s", EnvKSeFKeyPEM, EnvKSeFCertPEM)
	}
	return nil
}

type JobConfig struct {
	FailThreshold float64 `envconfig:"ACCT_JOB_FAIL_THRESHOLD" default:"0.2"`
	DefaultLimit  int     `envconfig:"ACCT_JOB_DEFAULT_LIMIT" default:"25"`
	MaxLimit      int     `envconfig:"ACCT_JOB_MAX_LIMIT" default:"500"`
}

// validate bounds the alerting threshold to a ratio; zero is a valid
// setting meaning any failure raises an alert.
func (j JobConfig) validate() error {
	if j.FailThreshold < 0 || j.FailThreshold > 1 {
		return fmt.Errorf("%s must be between 0 and 1", EnvJobFailThreshold)
	}
	if j.DefaultLimit < 1 {
		return fmt.Errorf("%s must be at least 1", EnvJobDefaultLimit)
	}
	if j.MaxLimit < j.DefaultLimit {
		return fmt.Errorf("%s must not be below %s", EnvJobMaxLimit, EnvJobDefaultLimit)
	}
	return nil
}

type CronConfig struct {
	Interval time.Duration `envconfig:"ACCT_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"ACCT_CRON_LOCK_TTL" default:"55m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ACCT_FEATURE_AUTO_MIGRATE" default:"false"`
}
