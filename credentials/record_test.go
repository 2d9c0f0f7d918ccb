package credentials_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/credentials/storetest"
	"github.com/stretchr/testify/require"
)

func TestRecordValuesRoundTrip(t *testing.T) {
	rec := credentials.Record{Pair: storetest.Pair(), Profile: storetest.Profile()}

	values, err := rec.Values()
	require.NoError(t, err)
	require.Equal(t, "A1", values[credentials.KeyAccessToken])
	require.Equal(t, "R1", values[credentials.KeyRefreshToken])
	require.Contains(t, values[credentials.KeyUser], `"nome":"Ana"`)

	back, err := credentials.RecordFromValues(values)
	require.NoError(t, err)
	require.Equal(t, rec.Profile, back.Profile)
	require.True(t, rec.Pair.Expiry.Equal(back.Pair.Expiry))
}

func TestRecordFromValuesEmptyIsNotFound(t *testing.T) {
	_, err := credentials.RecordFromValues(map[string]string{})
	require.ErrorIs(t, err, credentials.ErrNotFound)

	_, err = credentials.RecordFromValues(map[string]string{credentials.KeyExpiresAt: ""})
	require.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestRecordFromValuesPartialIsCorrupt(t *testing.T) {
	_, err := credentials.RecordFromValues(map[string]string{
		credentials.KeyAccessToken: "A1",
		credentials.KeyUser:        `{"id":"1"}`,
	})
	require.ErrorIs(t, err, credentials.ErrCorruptRecord)
}

func TestRecordFromValuesBadProfile(t *testing.T) {
	_, err := credentials.RecordFromValues(map[string]string{
		credentials.KeyAccessToken:  "A1",
		credentials.KeyRefreshToken: "R1",
		credentials.KeyUser:         "{not json",
	})
	require.ErrorIs(t, err, credentials.ErrCorruptRecord)
}

func TestValuesRejectsHalfPair(t *testing.T) {
	_, err := credentials.Record{Pair: credentials.Pair{RefreshToken: "R1"}}.Values()
	require.ErrorIs(t, err, credentials.ErrIncompletePair)
}

func TestOAuth2Token(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	tok := credentials.Pair{AccessToken: "A1", RefreshToken: "R1", Expiry: exp}.OAuth2Token()

	require.Equal(t, "A1", tok.AccessToken)
	require.Equal(t, "R1", tok.RefreshToken)
	require.Equal(t, "Bearer", tok.Type())
	require.True(t, tok.Valid())
}
