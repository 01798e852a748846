package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"smartapp/internal/identity"
)

// Headers set by the fronting auth proxy.
const (
	HeaderUserID          = "X-User-ID"
	HeaderUserName        = "X-User-Name"
	HeaderUserRole        = "X-User-Role"
	HeaderUserPermissions = "X-User-Permissions"
)

// Identity reads the proxy headers into the request context. A missing or
// malformed user id leaves the request anonymous.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := parseIdentity(r.Header)
			if h, ok := r.Context().Value(userHolderKey).(*userHolder); ok {
				h.id = id
			}
			next.ServeHTTP(w, r.WithContext(identity.With(r.Context(), id)))
		})
	}
}

func parseIdentity(h http.Header) identity.Identity {
	uid, err := strconv.ParseUint(strings.TrimSpace(h.Get(HeaderUserID)), 10, 64)
	if err != nil || uid == 0 {
		return identity.Identity{}
	}
	id := identity.Identity{
		ID:       uint(uid),
		Username: strings.TrimSpace(h.Get(HeaderUserName)),
		Role:     strings.ToLower(strings.TrimSpace(h.Get(HeaderUserRole))),
	}
	for _, p := range strings.Split(h.Get(HeaderUserPermissions), ",") {
		if p = strings.TrimSpace(p); p != "" {
			id.Permissions = append(id.Permissions, p)
		}
	}
	return id
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() func(http.Handler) http.Handler {
	return gate(func(identity.Identity) bool { return true })
}

// RequireRole passes users holding one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return gate(func(id identity.Identity) bool { return id.HasRole(roles...) })
}

// RequirePermission passes users holding p; admins always pass.
func RequirePermission(p string) func(http.Handler) http.Handler {
	return gate(func(id identity.Identity) bool { return id.HasPermission(p) })
}

func gate(allow func(identity.Identity) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := identity.From(r.Context())
			switch {
			case !id.Authenticated():
				deny(w, http.StatusUnauthorized, "يرجى تسجيل الدخول.")
			case !allow(id):
				deny(w, http.StatusForbidden, "ليس لديك صلاحية للوصول إلى هذه الصفحة.")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}
