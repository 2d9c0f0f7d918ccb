package authmodel

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register. It creates a tenant and its first
// (admin) user in one call.
type RegisterRequest struct {
	// Name is the user's display name.
	Name string `json:"nome"`

	// Email becomes the login identity and the tenant's contact address.
	Email string `json:"email"`

	// Password must be at least six characters; the server enforces it.
	Password string `json:"password"`

	// CompanyName is the tenant's display name.
	CompanyName string `json:"empresa_nome"`

	// CompanySlug identifies the tenant.
	// Example: "acme-ltda"
	// Validated by the server against ^[a-z0-9-]+$
	CompanySlug string `json:"empresa_slug"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
