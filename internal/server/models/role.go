package models

// CapabilityDeactivateAccounts marks roles whose holders may soft-delete
// other accounts.
const CapabilityDeactivateAccounts = "accounts:deactivate"

// DefaultRoleName is assigned to every account at registration.
const DefaultRoleName = "USER"

// Role is a named capability grouping assigned to an account. An account may
// hold several active role assignments at once.
type Role struct {
	ID   int64
	Name string
}

// Privilege is a fine-grained permission granted to a role through the
// role–privilege mapping. Privileges reach an account only transitively via
// its roles.
type Privilege struct {
	ID   int64
	Name string
}
