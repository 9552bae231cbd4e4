package domain

// Identity is the authenticated caller as decoded from an identity token.
type Identity struct {
	ID       string
	Username string
	Email    string
	Role     Role
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// IdentityOf builds the token identity for a stored user.
func IdentityOf(u *User) Identity {
	return Identity{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}
