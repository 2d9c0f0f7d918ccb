package manager

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/credentials/filestore"
	"github.com/jrsteele09/go-auth-client/credentials/redisstore"
	credentialrepofake "github.com/jrsteele09/go-auth-client/credentials/repofake"
	"github.com/jrsteele09/go-auth-client/credentials/sqlitestore"
	"github.com/jrsteele09/go-auth-client/internal/config"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// OpenStore builds the credential store selected by cfg. Stores holding a connection
// implement io.Closer and are closed by Manager.Close.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (credentials.Store, error) {
	switch driver := cfg.GetStoreDriver(); driver {
	case config.StoreDriverMemory:
		return credentialrepofake.NewFakeCredentialRepo(), nil
	case config.StoreDriverFile:
		return filestore.New(cfg.GetStorePath())
	case config.StoreDriverSQLite:
		return sqlitestore.New(cfg.GetStorePath())
	case config.StoreDriverRedis:
		return redisstore.Dial(ctx, cfg.GetRedisAddr(), cfg.GetRedisPrefix(), cfg.GetRedisTTL())
	default:
		return nil, autherrors.Wrapf(autherrors.ErrUnsupported, "[manager OpenStore] store driver %q", driver)
	}
}

// describeStore names a store for log lines.
func describeStore(store credentials.Store) string {
	switch s := store.(type) {
	case *filestore.Store:
		return "file:" + s.Path()
	case *sqlitestore.Store:
		return "sqlite"
	case *redisstore.Store:
		return "redis"
	case *credentialrepofake.FakeCredentialRepo:
		return "memory"
	default:
		return fmt.Sprintf("%T", store)
	}
}
