package config

import "time"

// Config is the full client configuration. Each concern has its own interface so
// components only depend on the getters they use.
type Config interface {
	EnvConfig
	APIConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type APIConfig interface {
	GetBaseURL() string
	GetHTTPTimeout() time.Duration
	GetRenewalTimeout() time.Duration
	GetLoginURL() string
	GetVerifyOnStart() bool
}

type StoreConfig interface {
	GetStoreDriver() string
	GetStorePath() string
	GetRedisAddr() string
	GetRedisPrefix() string
	GetRedisTTL() time.Duration
}

type mainConfig struct {
	EnvVars
	API
	Store
}

// New returns a Config backed by environment variables.
func New() Config {
	return mainConfig{}
}
