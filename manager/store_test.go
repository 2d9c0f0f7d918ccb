package manager_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/credentials/filestore"
	"github.com/jrsteele09/go-auth-client/credentials/redisstore"
	credentialrepofake "github.com/jrsteele09/go-auth-client/credentials/repofake"
	"github.com/jrsteele09/go-auth-client/credentials/sqlitestore"
	"github.com/jrsteele09/go-auth-client/credentials/storetest"
	"github.com/jrsteele09/go-auth-client/internal/config"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/manager"
	"github.com/stretchr/testify/require"
)

func TestOpenStore(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name   string
		driver string
		path   string
		want   credentials.Store
	}{
		{"memory", config.StoreDriverMemory, "", &credentialrepofake.FakeCredentialRepo{}},
		{"file", config.StoreDriverFile, "credentials.json", &filestore.Store{}},
		{"sqlite", config.StoreDriverSQLite, "credentials.db", &sqlitestore.Store{}},
		{"redis", config.StoreDriverRedis, "", &redisstore.Store{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings("http://localhost:5000/api")
			s.Store.Driver = tt.driver
			if tt.path != "" {
				s.Store.Path = filepath.Join(t.TempDir(), tt.path)
			}
			s.Store.RedisAddr = mr.Addr()
			s.Store.RedisPrefix = "test-" + tt.name

			store, err := manager.OpenStore(context.Background(), s)
			require.NoError(t, err)
			require.IsType(t, tt.want, store)

			ctx := context.Background()
			require.NoError(t, store.Write(ctx, storetest.Pair(), storetest.Profile()))
			rec, err := store.Read(ctx)
			require.NoError(t, err)
			require.Equal(t, "A1", rec.Pair.AccessToken)

			m, err := manager.New(ctx, s, store)
			require.NoError(t, err)
			require.True(t, m.Session().IsAuthenticated)
			require.NoError(t, m.Close())
		})
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	s := testSettings("http://localhost:5000/api")
	s.Store.Driver = "etcd"

	_, err := manager.OpenStore(context.Background(), s)
	require.ErrorIs(t, err, autherrors.ErrUnsupported)
}

func TestNewDiscardsCorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store, err := filestore.New(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"A1"}`), 0o600))

	m, err := manager.New(context.Background(), testSettings("http://localhost:5000/api"), store)
	require.NoError(t, err)
	require.False(t, m.Session().IsAuthenticated)

	_, err = store.Read(context.Background())
	require.ErrorIs(t, err, credentials.ErrNotFound)
}
