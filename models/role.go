package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// Role is a member's role on a board. The canonical form is lowercase and is
// what gets written to storage; ParseRole and Scan accept any casing.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

var ErrInvalidRole = errors.New("invalid role")

// ParseRole normalises s into one of the known roles.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleOwner, RoleMember, RoleViewer:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

func (r Role) String() string {
	return string(r)
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// CanWrite reports whether the role may create or delete board content.
func (r Role) CanWrite() bool {
	return r == RoleOwner || r == RoleMember
}

// Scan implements sql.Scanner. Rows written before roles were normalised
// ("Owner", "Viewer") are read back in canonical form.
func (r *Role) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		*r = ""
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Role", value)
	}

	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value implements driver.Valuer.
func (r Role) Value() (driver.Value, error) {
	parsed, err := ParseRole(string(r))
	if err != nil {
		return nil, err
	}
	return string(parsed), nil
}
