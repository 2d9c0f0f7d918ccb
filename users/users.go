package users

import (
	"github.com/jrsteele09/go-auth-client/ids"
	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/jrsteele09/go-auth-client/tenants"
)

// RoleType is the user's role inside their tenant ("perfil" on the wire).
type RoleType string

const (
	RoleAdmin RoleType = "admin"
	RoleUser  RoleType = "usuario"
)

// Profile is the server-supplied identity attached to a session. The client treats it
// as opaque apart from merging profile edits into it.
type Profile struct {
	ID        ids.ID          `json:"id,omitempty"`           // Server identifier, numeric or text on the wire
	Name      string          `json:"nome,omitempty"`         // Display name
	Email     string          `json:"email,omitempty"`        // Login identity
	Role      RoleType        `json:"perfil,omitempty"`       // Role within the tenant
	LastLogin string          `json:"ultimo_login,omitempty"` // Server timestamp, kept verbatim
	Company   *tenants.Tenant `json:"empresa,omitempty"`      // Tenant the user belongs to
}

// ProfileUpdate is a partial profile edit. Nil fields are left untouched.
type ProfileUpdate struct {
	Name      *string         `json:"nome,omitempty"`
	Email     *string         `json:"email,omitempty"`
	Role      *RoleType       `json:"perfil,omitempty"`
	LastLogin *string         `json:"ultimo_login,omitempty"`
	Company   *tenants.Tenant `json:"empresa,omitempty"`
}

// Merge returns a copy of p with every field set in u applied. The ID is never changed.
func (p Profile) Merge(u ProfileUpdate) Profile {
	merged := p.Clone()
	merged.Name = utils.Override(merged.Name, u.Name)
	merged.Email = utils.Override(merged.Email, u.Email)
	merged.Role = utils.Override(merged.Role, u.Role)
	merged.LastLogin = utils.Override(merged.LastLogin, u.LastLogin)
	if u.Company != nil {
		merged.Company = u.Company.Clone()
	}
	return merged
}

// Clone returns a deep copy so snapshots handed to callers cannot alias session state.
func (p Profile) Clone() Profile {
	p.Company = p.Company.Clone()
	return p
}

// IsZero reports whether no identity has been set.
func (p Profile) IsZero() bool {
	return p.ID.IsZero() && p.Email == ""
}

// TenantID returns the company identifier, empty when the profile has none.
func (p Profile) TenantID() string {
	return utils.Value(p.Company).ID.String()
}
