package credentialrepofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/users"
)

var _ credentials.Store = (*FakeCredentialRepo)(nil)

// FakeCredentialRepo keeps the record in memory. It backs the "memory" store driver
// and the tests; it does not survive a restart.
type FakeCredentialRepo struct {
	record *credentials.Record
	lock   sync.RWMutex

	// Fault injection for tests
	WriteErr error
	ClearErr error
	Writes   int
	Clears   int
}

func NewFakeCredentialRepo() *FakeCredentialRepo {
	return &FakeCredentialRepo{}
}

// NewSeededCredentialRepo returns a repo that already holds a record, as if a previous
// process had logged in.
func NewSeededCredentialRepo(pair credentials.Pair, profile users.Profile) *FakeCredentialRepo {
	rec := credentials.Record{Pair: pair, Profile: profile.Clone()}
	return &FakeCredentialRepo{record: &rec}
}

func (cr *FakeCredentialRepo) Write(_ context.Context, pair credentials.Pair, profile users.Profile) error {
	rec, err := credentials.NewRecord(pair, profile)
	if err != nil {
		return err
	}

	cr.lock.Lock()
	defer cr.lock.Unlock()

	cr.Writes++
	if cr.WriteErr != nil {
		return cr.WriteErr
	}
	cr.record = &rec
	return nil
}

func (cr *FakeCredentialRepo) Read(_ context.Context) (credentials.Record, error) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	if cr.record == nil {
		return credentials.Record{}, credentials.ErrNotFound
	}
	rec := *cr.record
	rec.Profile = rec.Profile.Clone()
	return rec, nil
}

func (cr *FakeCredentialRepo) Clear(_ context.Context) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	cr.Clears++
	if cr.ClearErr != nil {
		return cr.ClearErr
	}
	cr.record = nil
	return nil
}

// Empty reports whether nothing is persisted.
func (cr *FakeCredentialRepo) Empty() bool {
	cr.lock.RLock()
	defer cr.lock.RUnlock()
	return cr.record == nil
}
