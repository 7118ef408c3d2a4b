package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/shared"
)

func requestAs(t *testing.T, path string, id *shared.Identity) *http.Request {
	t.Helper()
	mr := miniredis.RunT(t)
	sessions := shared.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test_session", "secret", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)
	if id != nil {
		sess.SetIdentity(*id)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func serve(mw func(http.Handler) http.Handler, req *http.Request) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(res, req)
	return res
}

func TestRequireAnyUsesSessionRole(t *testing.T) {
	m := Middleware{Service: NewService(nil)}
	requestor := &shared.Identity{UserID: 999, Email: "requestor@procureflow.local", Role: shared.RoleRequestor}

	res := serve(m.RequireAny(shared.PermPurchaseOrdersCreate), requestAs(t, "/purchase-orders", requestor))
	require.Equal(t, http.StatusNoContent, res.Code)

	res = serve(m.RequireAny(shared.PermUsersView), requestAs(t, "/admin/users", requestor))
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	m := Middleware{Service: NewService(nil)}
	admin := &shared.Identity{UserID: 1, Role: shared.RoleSuperadmin}

	res := serve(m.RequireAll(shared.PermUsersView, shared.PermSystemView), requestAs(t, "/admin/tables", admin))
	require.Equal(t, http.StatusNoContent, res.Code)

	res = serve(m.RequireAll(shared.PermUsersView, shared.PermPurchaseOrdersCreate), requestAs(t, "/admin/tables", admin))
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestRequireRole(t *testing.T) {
	m := Middleware{Service: NewService(nil)}
	res := serve(m.RequireRole("SuperAdmin"), requestAs(t, "/admin", &shared.Identity{UserID: 1, Role: shared.RoleSuperadmin}))
	require.Equal(t, http.StatusNoContent, res.Code)

	res = serve(m.RequireRole(shared.RoleSuperadmin), requestAs(t, "/admin", &shared.Identity{UserID: 2, Role: shared.RoleRequestor}))
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestAnonymousRequests(t *testing.T) {
	m := Middleware{Service: NewService(nil)}

	res := serve(m.RequireAuth(), requestAs(t, "/purchase-orders", nil))
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/auth/login", res.Header().Get("Location"))

	res = serve(m.RequireAuth(), requestAs(t, "/api/purchase-orders/20240501-001", nil))
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestListRolesIsSorted(t *testing.T) {
	roles := NewService(map[string][]string{"b": {"x.view", "a.view"}, "a": {"X.VIEW", " x.view "}}).ListRoles()
	require.Len(t, roles, 2)
	require.Equal(t, "a", roles[0].Name)
	require.Equal(t, []string{"x.view"}, roles[0].Permissions)
	require.Equal(t, []string{"a.view", "x.view"}, roles[1].Permissions)
}
