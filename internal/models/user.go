package models

// Roles carried in the access token.
const (
	RoleAdmin    = "Admin"
	RoleCustomer = "Customer"
)

// User is the read-only view of an account owned by the auth service.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsEnabled bool   `json:"is_enabled"`
}
