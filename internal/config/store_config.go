package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	storeDriverVar = "AUTH_STORE_DRIVER"
	storePathVar   = "AUTH_STORE_PATH"
	redisAddrVar   = "AUTH_REDIS_ADDR"
	redisPrefixVar = "AUTH_REDIS_PREFIX"
	redisTTLVar    = "AUTH_REDIS_TTL"

	StoreDriverMemory = "memory"
	StoreDriverFile   = "file"
	StoreDriverSQLite = "sqlite"
	StoreDriverRedis  = "redis"
)

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreDriver() string {
	return GetEnv(storeDriverVar, StoreDriverFile)
}

// GetStorePath is the credential file (file driver) or database file (sqlite driver).
func (s Store) GetStorePath() string {
	def := "credentials.json"
	if s.GetStoreDriver() == StoreDriverSQLite {
		def = "credentials.db"
	}
	return GetEnv(storePathVar, DefaultStorePath(def))
}

func (Store) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "localhost:6379")
}

func (Store) GetRedisPrefix() string {
	return GetEnv(redisPrefixVar, "authclient")
}

// GetRedisTTL of zero keeps the keys until logout.
func (Store) GetRedisTTL() time.Duration {
	return GetEnvDuration(redisTTLVar, 0)
}

// DefaultStorePath places name under the user's config directory, falling back to the
// working directory when none is available.
func DefaultStorePath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, "sessionctl", name)
}
