// Package storetest holds the behaviour every credentials.Store must share. Backend
// tests call Run with a constructor for a fresh, empty store.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/tenants"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Profile is the profile written by the suite.
func Profile() users.Profile {
	return users.Profile{
		ID:    "1",
		Name:  "Ana",
		Email: "a@b.com",
		Role:  users.RoleAdmin,
		Company: &tenants.Tenant{
			ID:   "t-1",
			Name: "Acme",
			Slug: "acme",
		},
	}
}

// Pair is the credential pair written by the suite.
func Pair() credentials.Pair {
	return credentials.Pair{
		AccessToken:  "A1",
		RefreshToken: "R1",
		Expiry:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// Run exercises the Store contract against stores built by newStore.
func Run(t *testing.T, newStore func(t *testing.T) credentials.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty store reads not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Read(ctx)
		require.ErrorIs(t, err, credentials.ErrNotFound)
	})

	t.Run("write then read round trips", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Write(ctx, Pair(), Profile()))

		rec, err := s.Read(ctx)
		require.NoError(t, err)
		require.Equal(t, "A1", rec.Pair.AccessToken)
		require.Equal(t, "R1", rec.Pair.RefreshToken)
		require.True(t, Pair().Expiry.Equal(rec.Pair.Expiry))
		require.Equal(t, Profile(), rec.Profile)
	})

	t.Run("write replaces previous record", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Write(ctx, Pair(), Profile()))
		require.NoError(t, s.Write(ctx, credentials.Pair{AccessToken: "A2", RefreshToken: "R2"}, Profile()))

		rec, err := s.Read(ctx)
		require.NoError(t, err)
		require.Equal(t, "A2", rec.Pair.AccessToken)
		require.Equal(t, "R2", rec.Pair.RefreshToken)
		require.True(t, rec.Pair.Expiry.IsZero(), "stale expiry must not survive a rewrite")
	})

	t.Run("half pair is rejected and nothing is written", func(t *testing.T) {
		s := newStore(t)
		err := s.Write(ctx, credentials.Pair{AccessToken: "A1"}, Profile())
		require.ErrorIs(t, err, credentials.ErrIncompletePair)

		_, err = s.Read(ctx)
		require.ErrorIs(t, err, credentials.ErrNotFound)
	})

	t.Run("clear removes everything", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Write(ctx, Pair(), Profile()))
		require.NoError(t, s.Clear(ctx))

		_, err := s.Read(ctx)
		require.ErrorIs(t, err, credentials.ErrNotFound)
	})

	t.Run("clear on empty store is a no-op", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Clear(ctx))
		require.NoError(t, s.Clear(ctx))
	})

	t.Run("readers never see a partial record", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Write(ctx, Pair(), Profile()))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if i%2 == 0 {
					_ = s.Clear(ctx)
				} else {
					_ = s.Write(ctx, Pair(), Profile())
				}
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				rec, err := s.Read(ctx)
				if err != nil {
					assert.ErrorIs(t, err, credentials.ErrNotFound)
					continue
				}
				assert.True(t, rec.Pair.Valid())
				assert.Equal(t, "1", rec.Profile.ID.String())
			}
		}()
		wg.Wait()
	})
}
