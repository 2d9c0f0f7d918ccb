package tenants

import "github.com/jrsteele09/go-auth-client/ids"

// Tenant is the company a user belongs to. The backend calls it "empresa"; every
// account registers under exactly one.
type Tenant struct {
	ID     ids.ID `json:"id,omitempty"`
	Name   string `json:"nome,omitempty"`   // Display name
	Slug   string `json:"slug,omitempty"`   // URL-safe identifier chosen at registration
	Email  string `json:"email,omitempty"`  // Contact address, the registering user's email
	Status string `json:"status,omitempty"` // "ativo" once provisioned
}

// Clone returns a deep copy, nil for nil.
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
