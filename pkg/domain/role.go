package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of supply-chain roles. A participant holds exactly one.
type Role uint8

const (
	RoleFarmer Role = iota + 1
	RoleTransporter
	RoleWholesaler
	RoleRetailer
	RoleArbitrator
)

// Roles lists every valid role in declaration order.
var Roles = []Role{RoleFarmer, RoleTransporter, RoleWholesaler, RoleRetailer, RoleArbitrator}

func (r Role) String() string {
	switch r {
	case RoleFarmer:
		return "farmer"
	case RoleTransporter:
		return "transporter"
	case RoleWholesaler:
		return "wholesaler"
	case RoleRetailer:
		return "retailer"
	case RoleArbitrator:
		return "arbitrator"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleTransporter, RoleWholesaler, RoleRetailer, RoleArbitrator:
		return true
	default:
		return false
	}
}

// ParseRole accepts the lower-case role name (case-insensitive).
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if strings.EqualFold(s, r.String()) {
			return r, nil
		}
	}
	return 0, ErrInvalidRole.With("ParseRole", "%q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, ErrInvalidRole.With("MarshalText", "%d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
