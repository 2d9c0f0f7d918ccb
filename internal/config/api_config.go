package config

import (
	"strings"
	"time"
)

const (
	baseURLVar        = "AUTH_API_URL"
	httpTimeoutVar    = "AUTH_HTTP_TIMEOUT"
	renewalTimeoutVar = "AUTH_RENEWAL_TIMEOUT"
	loginURLVar       = "AUTH_LOGIN_URL"
	verifyOnStartVar  = "AUTH_VERIFY_ON_START"

	DefaultBaseURL        = "http://localhost:5000/api"
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultRenewalTimeout = 30 * time.Second
	DefaultLoginURL       = "/login"
)

type API struct{}

var _ APIConfig = API{}

// GetBaseURL returns the API root all endpoint paths are appended to, without a
// trailing slash.
func (API) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, DefaultBaseURL), "/")
}

func (API) GetHTTPTimeout() time.Duration {
	return GetEnvDuration(httpTimeoutVar, DefaultHTTPTimeout)
}

// GetRenewalTimeout bounds a single renewal call so a hung refresh cannot leave the
// protocol in Refreshing forever.
func (API) GetRenewalTimeout() time.Duration {
	return GetEnvDuration(renewalTimeoutVar, DefaultRenewalTimeout)
}

// GetLoginURL is the unauthenticated entry point reported on teardown.
func (API) GetLoginURL() string {
	return GetEnv(loginURLVar, DefaultLoginURL)
}

func (API) GetVerifyOnStart() bool {
	return GetEnvBool(verifyOnStartVar, false)
}
