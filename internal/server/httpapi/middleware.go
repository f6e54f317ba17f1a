package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/merklebot/storage/internal/common"
	"github.com/merklebot/storage/internal/server/models"
)

type contextKey string

const (
	tenantContextKey contextKey = "tenant"
	userContextKey   contextKey = "user"
)

func tenantFromContext(ctx context.Context) *models.Tenant {
	tenant, _ := ctx.Value(tenantContextKey).(*models.Tenant)
	return tenant
}

func userFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

// hostLabel extracts the tenant label from the request host: the first
// dot-separated segment, port stripped.
func hostLabel(host string) string {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	if i := strings.IndexByte(host, '.'); i >= 0 {
		host = host[:i]
	}
	return host
}

// withTenant resolves the tenant from the request hostname. Requests to
// unknown hosts get 404 before any auth is attempted.
func (s *Server) withTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant, err := s.tenants.GetByHost(r.Context(), hostLabel(r.Host))
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), tenantContextKey, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withUser authenticates the bearer access token against the tenant resolved
// by withTenant.
func (s *Server) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := tenantFromContext(r.Context())
		if tenant == nil {
			writeError(w, common.ErrorUnauthorized)
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			writeError(w, common.ErrorUnauthorized)
			return
		}

		user, err := s.users.Authenticate(r.Context(), tenant, token)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withAdminToken guards the internal API with the shared admin token.
// Meant for the trusted internal network only.
func (s *Server) withAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Admin-Token") != s.config.AdminToken {
			writeError(w, common.ErrorUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
