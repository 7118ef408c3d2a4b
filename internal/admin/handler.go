package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/procureflow/procureflow/internal/audit"
	"github.com/procureflow/procureflow/internal/platform/httpx"
	"github.com/procureflow/procureflow/internal/purchasing"
	"github.com/procureflow/procureflow/internal/rbac"
	"github.com/procureflow/procureflow/internal/shared"
	"github.com/procureflow/procureflow/internal/users"
)

// Handler serves the superadmin JSON endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	users   *users.Handler
	audit   *audit.Handler
}

// NewHandler builds Handler. usersHandler, when set, is mounted at /users.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, usersHandler *users.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, users: usersHandler}
}

// WithAudit mounts the audit timeline under /audit.
func (h *Handler) WithAudit(a *audit.Handler) *Handler {
	h.audit = a
	return h
}

// MountRoutes registers admin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(shared.RoleSuperadmin))
		r.Get("/purchase-orders", h.listPurchaseOrders)
		r.Get("/tables", h.listTables)
		r.Get("/tables/{name}/columns", h.listColumns)
		if h.users != nil {
			r.Route("/users", h.users.MountRoutes)
		}
		if h.audit != nil {
			r.With(h.rbac.RequireAny(shared.PermAuditView)).Group(h.audit.MountRoutes)
		}
	})
}

type reviewRow struct {
	Number         string `json:"purchase_order_number"`
	RequestorEmail string `json:"requestor_email"`
	Supplier       string `json:"supplier"`
	Purpose        string `json:"purpose"`
	DeliveryDate   string `json:"delivery_date"`
	Status         string `json:"status"`
	Total          string `json:"total"`
	CreatedAt      string `json:"created_at"`
}

func (h *Handler) listPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := shared.PageFromQuery(q)
	filter := purchasing.ListFilter{
		Status:  strings.TrimSpace(q.Get("status")),
		Search:  strings.TrimSpace(q.Get("q")),
		Page:    page,
		PerPage: perPage,
	}
	rows, total, err := h.service.PurchaseOrders(r.Context(), filter)
	if err != nil {
		h.logger.Error("admin list purchase orders", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
		return
	}
	out := make([]reviewRow, 0, len(rows))
	for _, s := range rows {
		out = append(out, reviewRow{
			Number:         s.Number,
			RequestorEmail: s.RequestorEmail,
			Supplier:       s.SupplierName,
			Purpose:        s.Purpose,
			DeliveryDate:   s.DeliveryDate.Format("2006-01-02"),
			Status:         s.Status,
			Total:          s.Total.StringFixed(2),
			CreatedAt:      s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"purchase_orders": out,
		"pagination":      shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.service.Tables(r.Context())
	if err != nil {
		h.logger.Error("admin list tables", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
		return
	}
	if tables == nil {
		tables = []TableStat{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func (h *Handler) listColumns(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	cols, err := h.service.Columns(r.Context(), name)
	if errors.Is(err, ErrUnknownTable) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Table "+name+" does not exist.")
		return
	}
	if err != nil {
		h.logger.Error("admin list columns", slog.String("table", name), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
		return
	}
	if cols == nil {
		cols = []Column{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"table": name, "columns": cols})
}
