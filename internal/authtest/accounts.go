package authtest

import (
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-client/ids"
	"github.com/jrsteele09/go-auth-client/tenants"
	"github.com/jrsteele09/go-auth-client/users"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

const (
	errBadCredentials rejection = "Email ou senha incorretos"
	errEmailTaken     rejection = "Email já está em uso"
	errSlugTaken      rejection = "Nome da empresa já está em uso"
)

type account struct {
	profile      users.Profile
	passwordHash []byte
}

// directory holds registered accounts and tenants, keyed by email and slug.
type directory struct {
	mu       sync.RWMutex
	accounts map[string]*account
	tenants  map[string]*tenants.Tenant
}

func newDirectory() *directory {
	return &directory{
		accounts: make(map[string]*account),
		tenants:  make(map[string]*tenants.Tenant),
	}
}

// register creates a tenant and its admin user.
func (d *directory) register(name, email, password, companyName, companySlug string) (*account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.accounts[email]; ok {
		return nil, errEmailTaken
	}
	if _, ok := d.tenants[companySlug]; ok {
		return nil, errSlugTaken
	}

	tenant := &tenants.Tenant{
		ID:     ids.ID(uuid.New().String()),
		Name:   companyName,
		Slug:   companySlug,
		Email:  email,
		Status: "ativo",
	}
	a := &account{
		profile: users.Profile{
			ID:      ids.ID(uuid.New().String()),
			Name:    name,
			Email:   email,
			Role:    users.RoleAdmin,
			Company: tenant,
		},
		passwordHash: hash,
	}
	d.tenants[companySlug] = tenant
	d.accounts[email] = a
	return a, nil
}

func (d *directory) authenticate(email, password string) (*account, error) {
	d.mu.RLock()
	a, ok := d.accounts[email]
	d.mu.RUnlock()
	if !ok {
		return nil, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return nil, errBadCredentials
	}
	return a, nil
}

func (d *directory) byEmail(email string) (*account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.accounts[email]
	return a, ok
}

func (d *directory) touch(email, lastLogin string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if a, ok := d.accounts[email]; ok {
		a.profile.LastLogin = lastLogin
	}
}

func (d *directory) profile(email string) (users.Profile, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.accounts[email]
	if !ok {
		return users.Profile{}, false
	}
	return a.profile.Clone(), true
}
