// Package identity carries the authenticated user through a request context.
package identity

import (
	"context"
	"strings"
)

const (
	RoleAdmin     = "admin"
	RoleDataEntry = "data_entry"
	RoleUser      = "user"
)

const (
	PermInquiry        = "can_inquiry"
	PermGeneralReports = "can_general_reports"
	PermTraderPrimary  = "can_trader_primary"
	PermTraderFrequent = "can_trader_frequent"
)

// Identity is the user the fronting auth proxy vouched for.
type Identity struct {
	ID          uint
	Username    string
	Role        string
	Permissions []string
}

func (i Identity) Authenticated() bool { return i.ID != 0 }

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// HasRole reports whether the user holds one of roles.
func (i Identity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// HasPermission is always true for admins.
func (i Identity) HasPermission(p string) bool {
	if i.IsAdmin() {
		return true
	}
	for _, have := range i.Permissions {
		if strings.EqualFold(have, p) {
			return true
		}
	}
	return false
}

var identityKey = struct{}{}

func With(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// From returns the request's identity; the zero Identity when none was set.
func From(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey).(Identity); ok {
		return id
	}
	return Identity{}
}
