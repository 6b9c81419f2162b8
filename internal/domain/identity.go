package domain

type Role string

const (
	RoleDriver    Role = "driver"
	RoleAdmin     Role = "admin"
	RolePassenger Role = "passenger"
)

// Identity is the authenticated caller as supplied by the auth collaborator.
type Identity struct {
	ID      int64
	Role    Role
	Blocked bool
}

// Can reports whether the identity holds role and is not blocked.
func (id Identity) Can(role Role) bool {
	return id.ID > 0 && !id.Blocked && id.Role == role
}

// Require returns an ErrForbidden-wrapping error when Can(role) is false.
func (id Identity) Require(role Role) error {
	if id.Can(role) {
		return nil
	}
	if id.Blocked {
		return &AccessError{Role: role, Detail: "account is blocked"}
	}
	return &AccessError{Role: role, Detail: "requires role " + string(role)}
}
