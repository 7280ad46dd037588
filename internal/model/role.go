package model

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
)

// Role is the baseline access tier of a user. Values are ordered from the
// least to the most privileged tier.
type Role uint8

const (
	RoleVisitor Role = iota
	RoleMember
	RoleAdmin
)

var roleNames = [...]string{
	RoleVisitor: "visitor",
	RoleMember:  "member",
	RoleAdmin:   "admin",
}

// AllRoles returns every role in hierarchical order.
func AllRoles() []Role {
	return []Role{RoleVisitor, RoleMember, RoleAdmin}
}

// IsValid reports whether r is one of the defined roles.
func (r Role) IsValid() bool {
	return int(r) < len(roleNames)
}

func (r Role) String() string {
	if !r.IsValid() {
		return fmt.Sprintf("role(%d)", uint8(r))
	}
	return roleNames[r]
}

// ParseRole converts a role name into a Role.
func ParseRole(s string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range roleNames {
		if n == name {
			return Role(i), nil
		}
	}
	return RoleVisitor, fmt.Errorf("unknown role %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("unknown role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value stores the role by name.
func (r Role) Value() (driver.Value, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("unknown role %d", uint8(r))
	}
	return r.String(), nil
}

// Scan reads a role stored by name.
func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	case nil:
		*r = RoleVisitor
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
}

// RoleSet is a set of roles persisted as a comma separated list.
type RoleSet []Role

// ParseRoleSet parses a comma separated list of role names.
func ParseRoleSet(s string) (RoleSet, error) {
	var set RoleSet
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, err := ParseRole(part)
		if err != nil {
			return nil, err
		}
		set = append(set, r)
	}
	return set.Normalize(), nil
}

// Contains reports whether r is a member of the set.
func (s RoleSet) Contains(r Role) bool {
	for _, x := range s {
		if x == r {
			return true
		}
	}
	return false
}

// Normalize returns the upward closure of the set: if a role is present,
// every more privileged role is present too. An empty set stays empty.
func (s RoleSet) Normalize() RoleSet {
	if len(s) == 0 {
		return nil
	}
	lowest := s[0]
	for _, r := range s[1:] {
		if r < lowest {
			lowest = r
		}
	}
	out := make(RoleSet, 0, len(roleNames))
	for _, r := range AllRoles() {
		if r >= lowest {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s RoleSet) String() string {
	names := make([]string, len(s))
	for i, r := range s {
		names[i] = r.String()
	}
	return strings.Join(names, ",")
}

// Value stores the set as a comma separated list.
func (s RoleSet) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan reads a comma separated list.
func (s *RoleSet) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		*s = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into RoleSet", src)
	}
	parsed, err := ParseRoleSet(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
