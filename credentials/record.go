package credentials

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-client/users"
)

// Values flattens a record into its durable keys. Key/value backends (SQLite rows,
// Redis keys) persist exactly this map.
func (r Record) Values() (map[string]string, error) {
	if !r.Pair.Valid() {
		return nil, ErrIncompletePair
	}

	profile, err := json.Marshal(r.Profile)
	if err != nil {
		return nil, fmt.Errorf("[credentials Values] marshal profile: %w", err)
	}

	values := map[string]string{
		KeyAccessToken:  r.Pair.AccessToken,
		KeyRefreshToken: r.Pair.RefreshToken,
		KeyUser:         string(profile),
		KeyExpiresAt:    "",
	}
	if !r.Pair.Expiry.IsZero() {
		values[KeyExpiresAt] = r.Pair.Expiry.UTC().Format(time.RFC3339Nano)
	}
	return values, nil
}

// RecordFromValues rebuilds a record from its durable keys. No keys at all means
// ErrNotFound; some but not all required keys means ErrCorruptRecord.
func RecordFromValues(values map[string]string) (Record, error) {
	access, hasAccess := nonEmpty(values, KeyAccessToken)
	refresh, hasRefresh := nonEmpty(values, KeyRefreshToken)
	profile, hasUser := nonEmpty(values, KeyUser)

	if !hasAccess && !hasRefresh && !hasUser {
		return Record{}, ErrNotFound
	}
	if !hasAccess || !hasRefresh || !hasUser {
		return Record{}, fmt.Errorf("[credentials RecordFromValues] missing keys: %w", ErrCorruptRecord)
	}

	var rec Record
	rec.Pair = Pair{AccessToken: access, RefreshToken: refresh}

	if err := json.Unmarshal([]byte(profile), &rec.Profile); err != nil {
		return Record{}, fmt.Errorf("[credentials RecordFromValues] profile: %v: %w", err, ErrCorruptRecord)
	}

	if exp, ok := nonEmpty(values, KeyExpiresAt); ok {
		t, err := time.Parse(time.RFC3339Nano, exp)
		if err != nil {
			return Record{}, fmt.Errorf("[credentials RecordFromValues] expires_at: %v: %w", err, ErrCorruptRecord)
		}
		rec.Pair.Expiry = t
	}

	return rec, nil
}

// NewRecord validates pair and copies profile into a record ready to persist.
func NewRecord(pair Pair, profile users.Profile) (Record, error) {
	if !pair.Valid() {
		return Record{}, ErrIncompletePair
	}
	return Record{Pair: pair, Profile: profile.Clone()}, nil
}

func nonEmpty(values map[string]string, key string) (string, bool) {
	v, ok := values[key]
	return v, ok && v != ""
}
