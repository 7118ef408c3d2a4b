package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/procureflow/procureflow/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAuth ensures a principal is bound to the session. Anonymous
// browsers are sent to the login page; API clients get 401.
func (m Middleware) RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := m.currentIdentity(r); !ok {
				m.unauthenticated(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole ensures the session role is one of roles.
func (m Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := normalizePermissions(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := m.currentIdentity(r)
			if !ok {
				m.unauthenticated(w, r)
				return
			}
			if hasAnyPermission([]string{id.Role}, allowed) {
				next.ServeHTTP(w, r)
				return
			}
			m.forbidden(w, r, id)
		})
	}
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := m.currentIdentity(r)
			if !ok {
				m.unauthenticated(w, r)
				return
			}
			if hasAnyPermission(m.Service.EffectivePermissions(id.Role), normalized) {
				next.ServeHTTP(w, r)
				return
			}
			m.forbidden(w, r, id)
		})
	}
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := m.currentIdentity(r)
			if !ok {
				m.unauthenticated(w, r)
				return
			}
			if hasAllPermissions(m.Service.EffectivePermissions(id.Role), normalized) {
				next.ServeHTTP(w, r)
				return
			}
			m.forbidden(w, r, id)
		})
	}
}

func (m Middleware) currentIdentity(r *http.Request) (shared.Identity, bool) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok || id.UserID == 0 {
		return shared.Identity{}, false
	}
	return id, true
}

func (m Middleware) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (m Middleware) forbidden(w http.ResponseWriter, r *http.Request, id shared.Identity) {
	if m.Logger != nil {
		m.Logger.Warn("rbac denied",
			slog.Int64("user_id", id.UserID),
			slog.String("role", id.Role),
			slog.String("path", r.URL.Path))
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, dup := unique[p]; dup {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
