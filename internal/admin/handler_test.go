package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/audit"
	"github.com/procureflow/procureflow/internal/purchasing"
	"github.com/procureflow/procureflow/internal/rbac"
	"github.com/procureflow/procureflow/internal/shared"
	"github.com/procureflow/procureflow/internal/users"
)

type fakeCatalog struct {
	tables  []TableStat
	columns map[string][]Column
	err     error
	asked   []string
}

func (f *fakeCatalog) Tables(context.Context) ([]TableStat, error) { return f.tables, f.err }

func (f *fakeCatalog) Columns(_ context.Context, table string) ([]Column, error) {
	f.asked = append(f.asked, table)
	return f.columns[table], nil
}

type fakeOrders struct {
	filter purchasing.ListFilter
	rows   []purchasing.Summary
}

func (f *fakeOrders) ListAll(_ context.Context, filter purchasing.ListFilter) ([]purchasing.Summary, int, error) {
	f.filter = filter
	return f.rows, len(f.rows), nil
}

type fakeUsers struct{}

func (fakeUsers) ListUsers(context.Context) ([]users.User, error) {
	return []users.User{{ID: 1, Email: "admin@procureflow.local", Role: shared.RoleSuperadmin, IsActive: true}}, nil
}
func (fakeUsers) Exists(context.Context, int64) (bool, error) { return true, nil }
func (fakeUsers) FindIDByEmail(context.Context, string) (int64, bool, error) {
	return 0, false, nil
}

type fakeAuditRepo struct {
	queries []audit.Query
}

func (f *fakeAuditRepo) Timeline(_ context.Context, q audit.Query) ([]audit.TimelineRow, error) {
	f.queries = append(f.queries, q)
	return []audit.TimelineRow{{ActorID: 7, Action: "PO_CREATE", Entity: "purchase_order", EntityID: "a"}}, nil
}

type adminFixture struct {
	router   chi.Router
	catalog  *fakeCatalog
	orders   *fakeOrders
	audit    *fakeAuditRepo
	identity *shared.Identity
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	sessions := shared.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test_session", "secret", time.Hour, false)
	f := &adminFixture{
		catalog: &fakeCatalog{
			tables: []TableStat{{Name: "purchase_orders", EstimatedRows: 12, TotalBytes: 16384, TotalSize: "16 kB"}},
			columns: map[string][]Column{
				"purchase_orders": {{Name: "id", DataType: "uuid", Position: 1}},
			},
		},
		orders: &fakeOrders{rows: []purchasing.Summary{{
			Number:       "20240501-001",
			SupplierName: "Acme Supplies",
			Status:       purchasing.StatusDraft,
			Total:        decimal.RequireFromString("296643.2"),
			DeliveryDate: time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC),
			CreatedAt:    time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		}}},
		audit:    &fakeAuditRepo{},
		identity: &shared.Identity{UserID: 1, Email: "admin@procureflow.local", Role: shared.RoleSuperadmin},
	}
	mw := rbac.Middleware{Service: rbac.NewService(nil)}
	h := NewHandler(nil, NewService(f.catalog, f.orders), mw, users.NewHandler(nil, users.NewService(fakeUsers{}), mw)).
		WithAudit(audit.NewHandler(nil, audit.NewService(f.audit)))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			if f.identity != nil {
				sess.SetIdentity(*f.identity)
			}
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/admin", h.MountRoutes)
	f.router = r
	return f
}

func (f *adminFixture) get(t *testing.T, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Accept", "application/json")
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	var body map[string]any
	if res.Body.Len() > 0 {
		_ = json.Unmarshal(res.Body.Bytes(), &body)
	}
	return res, body
}

func TestAdminRequiresSuperadmin(t *testing.T) {
	f := newAdminFixture(t)
	f.identity = &shared.Identity{UserID: 7, Email: "requestor@procureflow.local", Role: shared.RoleRequestor}

	res, _ := f.get(t, "/admin/tables")
	assert.Equal(t, http.StatusForbidden, res.Code)

	f.identity = nil
	res, _ = f.get(t, "/admin/tables")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAdminPurchaseOrders(t *testing.T) {
	f := newAdminFixture(t)

	res, body := f.get(t, "/admin/purchase-orders?status=Draft&page=2&per_page=10")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, purchasing.ListFilter{Status: "Draft", Page: 2, PerPage: 10}, f.orders.filter)
	rows := body["purchase_orders"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "20240501-001", row["purchase_order_number"])
	assert.Equal(t, "296643.20", row["total"])
	assert.Equal(t, "2024-05-20", row["delivery_date"])
}

func TestAdminTablesAndColumns(t *testing.T) {
	f := newAdminFixture(t)

	res, body := f.get(t, "/admin/tables")
	require.Equal(t, http.StatusOK, res.Code)
	tables := body["tables"].([]any)
	require.Len(t, tables, 1)
	assert.Equal(t, "purchase_orders", tables[0].(map[string]any)["name"])

	res, body = f.get(t, "/admin/tables/purchase_orders/columns")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, body["columns"], 1)

	res, _ = f.get(t, "/admin/tables/pg_authid/columns")
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, []string{"purchase_orders"}, f.catalog.asked)
}

func TestAdminTablesError(t *testing.T) {
	f := newAdminFixture(t)
	f.catalog.err = errors.New("connection reset")

	res, body := f.get(t, "/admin/tables")
	require.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Equal(t, "Something went wrong. Please try again.", body["detail"])
}

func TestAdminUsers(t *testing.T) {
	f := newAdminFixture(t)

	res, body := f.get(t, "/admin/users")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, body["users"], 1)
}

func TestAdminAuditTimeline(t *testing.T) {
	f := newAdminFixture(t)

	res, body := f.get(t, "/admin/audit?entity=purchase_order")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, body["rows"], 1)
	require.Len(t, f.audit.queries, 1)
	assert.Equal(t, "purchase_order", f.audit.queries[0].Entity)

	f.identity = &shared.Identity{UserID: 7, Email: "requestor@procureflow.local", Role: shared.RoleRequestor}
	res, _ = f.get(t, "/admin/audit")
	assert.Equal(t, http.StatusForbidden, res.Code)
}
