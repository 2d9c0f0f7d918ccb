package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Settings is a Config loaded from an optional YAML file with environment overrides.
type Settings struct {
	AppName  string `mapstructure:"app_name" validate:"required"`
	Env      string `mapstructure:"env" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=trace debug info warn error disabled"`

	API struct {
		BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
		HTTPTimeout    time.Duration `mapstructure:"http_timeout" validate:"gt=0"`
		RenewalTimeout time.Duration `mapstructure:"renewal_timeout" validate:"gt=0"`
		LoginURL       string        `mapstructure:"login_url" validate:"required"`
		VerifyOnStart  bool          `mapstructure:"verify_on_start"`
	} `mapstructure:"api"`

	Store struct {
		Driver      string        `mapstructure:"driver" validate:"oneof=memory file sqlite redis"`
		Path        string        `mapstructure:"path" validate:"required_if=Driver file,required_if=Driver sqlite"`
		RedisAddr   string        `mapstructure:"redis_addr" validate:"required_if=Driver redis"`
		RedisPrefix string        `mapstructure:"redis_prefix"`
		RedisTTL    time.Duration `mapstructure:"redis_ttl" validate:"gte=0"`
	} `mapstructure:"store"`
}

var _ Config = (*Settings)(nil)

// envBindings maps config keys onto the environment variables EnvVars, API and Store read.
var envBindings = map[string]string{
	"app_name":            appNameVar,
	"env":                 envVar,
	"log_level":           logLevelVar,
	"api.base_url":        baseURLVar,
	"api.http_timeout":    httpTimeoutVar,
	"api.renewal_timeout": renewalTimeoutVar,
	"api.login_url":       loginURLVar,
	"api.verify_on_start": verifyOnStartVar,
	"store.driver":        storeDriverVar,
	"store.path":          storePathVar,
	"store.redis_addr":    redisAddrVar,
	"store.redis_prefix":  redisPrefixVar,
	"store.redis_ttl":     redisTTLVar,
}

// Load reads configFile (when non-empty) and applies environment overrides on top.
// A missing configFile is an error; an empty configFile means environment and defaults only.
func Load(configFile string) (*Settings, error) {
	v := viper.New()

	v.SetDefault("app_name", "sessionctl")
	v.SetDefault("env", "DEV")
	v.SetDefault("log_level", "info")
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.http_timeout", DefaultHTTPTimeout)
	v.SetDefault("api.renewal_timeout", DefaultRenewalTimeout)
	v.SetDefault("api.login_url", DefaultLoginURL)
	v.SetDefault("api.verify_on_start", false)
	v.SetDefault("store.driver", StoreDriverFile)
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_prefix", "authclient")
	v.SetDefault("store.redis_ttl", time.Duration(0))

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("[config Load] bind %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("[config Load] config file not found: %s", configFile)
			}
			return nil, fmt.Errorf("[config Load] read %s: %w", configFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("[config Load] decode: %w", err)
	}

	if s.Store.Path == "" {
		switch s.Store.Driver {
		case StoreDriverFile:
			s.Store.Path = DefaultStorePath("credentials.json")
		case StoreDriverSQLite:
			s.Store.Path = DefaultStorePath("credentials.db")
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) GetAppName() string { return s.AppName }
func (s *Settings) GetEnv() string { return s.Env }
func (s *Settings) GetLogLevel() string { return s.LogLevel }
func (s *Settings) GetBaseURL() string { return trimSlash(s.API.BaseURL) }
func (s *Settings) GetHTTPTimeout() time.Duration { return s.API.HTTPTimeout }
func (s *Settings) GetRenewalTimeout() time.Duration { return s.API.RenewalTimeout }
func (s *Settings) GetLoginURL() string { return s.API.LoginURL }
func (s *Settings) GetVerifyOnStart() bool { return s.API.VerifyOnStart }
func (s *Settings) GetStoreDriver() string { return s.Store.Driver }
func (s *Settings) GetStorePath() string { return s.Store.Path }
func (s *Settings) GetRedisAddr() string { return s.Store.RedisAddr }
func (s *Settings) GetRedisPrefix() string { return s.Store.RedisPrefix }
func (s *Settings) GetRedisTTL() time.Duration { return s.Store.RedisTTL }

func trimSlash(u string) string {
	for len(u) > 0 && u[len(u)-1] == '/' {
		u = u[:len(u)-1]
	}
	return u
}
