package purchasing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/procureflow/procureflow/internal/platform/httpx"
	"github.com/procureflow/procureflow/internal/rbac"
	"github.com/procureflow/procureflow/internal/shared"
	"github.com/procureflow/procureflow/internal/view"
)

// idempotencyModule scopes Idempotency-Key values.
const idempotencyModule = "purchase_orders"

// emptyFormRows is the number of blank item rows on a fresh form.
const emptyFormRows = 3

// SupplierOption is a selectable supplier on the creation form.
type SupplierOption struct {
	ID   uuid.UUID
	Name string
}

// SupplierCatalog lists suppliers for the creation form.
type SupplierCatalog interface {
	Options(ctx context.Context) ([]SupplierOption, error)
}

// DocumentRenderer renders a purchase order into a downloadable document.
type DocumentRenderer interface {
	ContentType() string
	Render(w io.Writer, d Detail) error
}

// IdempotencyPort remembers client supplied Idempotency-Key values.
type IdempotencyPort interface {
	Reserve(ctx context.Context, module string, actorID int64, key string) (string, bool, error)
	Complete(ctx context.Context, module string, actorID int64, key, reference string) error
	Release(ctx context.Context, module string, actorID int64, key string) error
}

// HandlerOptions carries optional Handler collaborators.
type HandlerOptions struct {
	Suppliers   SupplierCatalog
	Documents   DocumentRenderer
	Idempotency IdempotencyPort
}

// Handler serves purchase order pages and the JSON API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	sessions  *shared.SessionManager
	rbac      rbac.Middleware
	suppliers SupplierCatalog
	documents DocumentRenderer
	idem      IdempotencyPort
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager, rbac rbac.Middleware, opts HandlerOptions) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		sessions:  sessions,
		rbac:      rbac,
		suppliers: opts.Suppliers,
		documents: opts.Documents,
		idem:      opts.Idempotency,
	}
}

// MountRoutes registers the HTML routes, mounted at /purchase-orders.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPurchaseOrdersCreate))
		r.Get("/", h.listPage)
		r.Get("/new", h.showForm)
		r.Post("/", h.createFromForm)
		r.Get("/{number}", h.detailPage)
		r.Get("/{number}/pdf", h.detailPDF)
	})
}

// MountAPI registers the JSON routes, mounted at /api.
func (h *Handler) MountAPI(r chi.Router) {
	r.Get("/purchase-orders/schema", h.apiSchema)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuth())
		r.Get("/purchase-orders/{number}", h.apiDetail)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPurchaseOrdersCreate))
		r.Post("/purchase-orders", h.apiCreate)
		r.Get("/purchase-orders/metrics", h.apiMetrics)
		r.Get("/suppliers/{id}/last-price", h.apiLastPrice)
	})
}

type formErrors map[string]string

func principalFrom(ctx context.Context) Principal {
	id, _ := shared.IdentityFromContext(ctx)
	return Principal{UserID: id.UserID, Email: id.Email, Role: id.Role}
}

func (h *Handler) listPage(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())
	requestorID, err := h.service.RequestorID(r.Context(), principal)
	if errors.Is(err, ErrIdentityUnresolved) {
		h.render(w, r, "pages/purchase_orders.html", "Purchase orders", map[string]any{
			"Errors":     formErrors{"general": IdentityRemediation},
			"Filters":    ListFilter{},
			"Statuses":   Statuses,
			"Pagination": shared.NewPagination(1, 0, 0),
		}, http.StatusForbidden)
		return
	}
	if err != nil {
		h.logger.Error("resolve requestor", slog.Any("error", err))
		http.Error(w, "Failed to load purchase orders", http.StatusInternalServerError)
		return
	}
	page, perPage := shared.PageFromQuery(r.URL.Query())
	filter := ListFilter{
		Status:  r.URL.Query().Get("status"),
		Search:  r.URL.Query().Get("search"),
		Page:    page,
		PerPage: perPage,
	}
	items, total, err := h.service.ListForRequestor(r.Context(), requestorID, filter)
	if err != nil {
		h.logger.Error("list purchase orders", slog.Any("error", err))
		http.Error(w, "Failed to load purchase orders", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/purchase_orders.html", "Purchase orders", map[string]any{
		"Orders":     items,
		"Filters":    filter,
		"Statuses":   Statuses,
		"Pagination": shared.NewPagination(page, perPage, total),
	}, http.StatusOK)
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	form := CreateRequest{Items: make([]ItemRequest, emptyFormRows)}
	h.renderForm(w, r, form, formErrors{}, http.StatusOK)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, form CreateRequest, errs formErrors, status int) {
	var options []SupplierOption
	if h.suppliers != nil {
		var err error
		options, err = h.suppliers.Options(r.Context())
		if err != nil {
			h.logger.Error("list supplier options", slog.Any("error", err))
			errs["general"] = "Suppliers could not be loaded."
		}
	}
	if len(form.Items) == 0 {
		form.Items = make([]ItemRequest, 1)
	}
	h.render(w, r, "pages/purchase_order_form.html", "New purchase order", map[string]any{
		"Form":      form,
		"Errors":    errs,
		"Suppliers": options,
	}, status)
}

func (h *Handler) createFromForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form, parseErrs := formRequest(r)
	created, err := h.service.CreatePurchaseOrder(r.Context(), principalFrom(r.Context()), form)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			errs := formErrors{}
			for key, msg := range verr.FieldErrors() {
				errs[key] = msg
			}
			for key, msg := range parseErrs {
				errs[key] = msg
			}
			h.renderForm(w, r, form, errs, http.StatusUnprocessableEntity)
		case errors.Is(err, ErrIdentityUnresolved):
			h.renderForm(w, r, form, formErrors{"general": IdentityRemediation}, http.StatusForbidden)
		case errors.Is(err, ErrForbidden):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		default:
			h.logger.Error("create purchase order", slog.Any("error", err))
			h.renderForm(w, r, form, formErrors{"general": "Failed to create purchase order. Please try again."}, http.StatusInternalServerError)
		}
		return
	}
	h.redirectWithFlash(w, r, "/purchase-orders/"+created.Number, "success", "Purchase order "+created.Number+" created.")
}

// formRequest collects the creation form. Item fields are parallel arrays;
// rows left completely blank are ignored. Quantities that are not integers
// are left at zero, which never validates, and reported in the returned map.
func formRequest(r *http.Request) (CreateRequest, map[string]string) {
	req := CreateRequest{
		SupplierID:    r.PostFormValue("supplier_id"),
		Purpose:       r.PostFormValue("purpose"),
		DateRequested: r.PostFormValue("date_requested"),
		DeliveryDate:  r.PostFormValue("delivery_date"),
	}
	parseErrs := map[string]string{}
	descriptions := r.PostForm["item_description"]
	quantities := r.PostForm["quantity"]
	prices := r.PostForm["unit_price"]
	for i := range descriptions {
		desc := descriptions[i]
		qty := valueAt(quantities, i)
		price := valueAt(prices, i)
		if strings.TrimSpace(desc) == "" && strings.TrimSpace(qty) == "" && strings.TrimSpace(price) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil && strings.TrimSpace(qty) != "" {
			key := "items." + strconv.Itoa(len(req.Items)) + ".quantity"
			parseErrs[key] = notAnInteger(key)
			n = 0
		}
		req.Items = append(req.Items, ItemRequest{
			ItemDescription: desc,
			Quantity:        n,
			UnitPrice:       OptionalPrice(price),
		})
	}
	return req, parseErrs
}

func valueAt(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

// ownedDetail loads a purchase order visible to the current requestor.
// Orders owned by someone else are reported as not found.
func (h *Handler) ownedDetail(w http.ResponseWriter, r *http.Request) (Detail, bool) {
	d, err := h.service.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.NotFound(w, r)
			return Detail{}, false
		}
		h.logger.Error("load purchase order", slog.Any("error", err))
		http.Error(w, "Failed to load purchase order", http.StatusInternalServerError)
		return Detail{}, false
	}
	if !d.OwnedBy(principalFrom(r.Context())) {
		http.NotFound(w, r)
		return Detail{}, false
	}
	return d, true
}

func (h *Handler) detailPage(w http.ResponseWriter, r *http.Request) {
	d, ok := h.ownedDetail(w, r)
	if !ok {
		return
	}
	h.render(w, r, "pages/purchase_order_detail.html", "Purchase order "+d.Number, map[string]any{
		"Order": d,
		"VAT":   d.VAT(),
	}, http.StatusOK)
}

func (h *Handler) detailPDF(w http.ResponseWriter, r *http.Request) {
	if h.documents == nil {
		http.NotFound(w, r)
		return
	}
	d, ok := h.ownedDetail(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.documents.Render(&buf, d); err != nil {
		h.logger.Error("render purchase order document", slog.Any("error", err), slog.String("po_number", d.Number))
		http.Error(w, "Failed to render purchase order", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", h.documents.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="PO-`+d.Number+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) apiCreate(w http.ResponseWriter, r *http.Request) {
	body, err := httpx.ReadBody(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	req, err := DecodeCreateRequest(body)
	if err != nil {
		if errors.Is(err, ErrMalformedBody) {
			httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
			return
		}
		h.respondCreateError(w, json.RawMessage(body), err)
		return
	}
	principal := principalFrom(r.Context())

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" && h.idem != nil {
		ref, replay, err := h.idem.Reserve(r.Context(), idempotencyModule, principal.UserID, key)
		switch {
		case errors.Is(err, shared.ErrIdempotencyInFlight):
			httpx.Problem(w, http.StatusConflict, "Request In Progress", "A request with this Idempotency-Key is still being processed.")
			return
		case err != nil:
			h.logger.Warn("reserve idempotency key", slog.Any("error", err))
			key = ""
		case replay:
			h.replayCreated(w, r, ref)
			return
		}
	} else {
		key = ""
	}

	created, err := h.service.CreatePurchaseOrder(r.Context(), principal, req)
	if err != nil {
		if key != "" {
			if rerr := h.idem.Release(r.Context(), idempotencyModule, principal.UserID, key); rerr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", rerr))
			}
		}
		h.respondCreateError(w, req, err)
		return
	}
	if key != "" {
		if cerr := h.idem.Complete(r.Context(), idempotencyModule, principal.UserID, key, created.Number); cerr != nil {
			h.logger.Warn("complete idempotency key", slog.Any("error", cerr))
		}
	}
	w.Header().Set("Location", "/api/purchase-orders/"+created.Number)
	httpx.JSON(w, http.StatusCreated, newCreatedResponse(created))
}

func (h *Handler) replayCreated(w http.ResponseWriter, r *http.Request, number string) {
	d, err := h.service.GetByNumber(r.Context(), number)
	if err != nil {
		h.logger.Error("replay purchase order", slog.Any("error", err), slog.String("po_number", number))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.Header().Set("Location", "/api/purchase-orders/"+d.Number)
	httpx.JSON(w, http.StatusOK, newCreatedResponse(Created{
		ID:     d.ID,
		Number: d.Number,
		Totals: Totals{
			Subtotal:    d.Subtotal,
			ShippingFee: d.ShippingFee,
			Discount:    d.Discount,
			VAT:         d.VAT(),
			Total:       d.Total,
		},
	}))
}

func (h *Handler) respondCreateError(w http.ResponseWriter, input any, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.ProblemWith(w, httpx.ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusUnprocessableEntity,
			Detail: "The given data was invalid.",
			Errors: verr.FieldErrors(),
			Input:  input,
		})
	case errors.Is(err, ErrIdentityUnresolved):
		httpx.Problem(w, http.StatusForbidden, "Account Not Found", IdentityRemediation)
	case errors.Is(err, ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "Only requestors can create purchase orders.")
	default:
		h.logger.Error("create purchase order", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "Failed to create purchase order: "+err.Error())
	}
}

func (h *Handler) apiDetail(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "Purchase order not found.")
			return
		}
		h.logger.Error("load purchase order", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, newDetailResponse(d))
}

func (h *Handler) apiMetrics(w http.ResponseWriter, r *http.Request) {
	requestorID, err := h.service.RequestorID(r.Context(), principalFrom(r.Context()))
	if errors.Is(err, ErrIdentityUnresolved) {
		httpx.Problem(w, http.StatusForbidden, "Account Not Found", IdentityRemediation)
		return
	}
	if err != nil {
		h.logger.Error("resolve requestor", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	m, err := h.service.Metrics(r.Context(), requestorID)
	if err != nil {
		h.logger.Error("purchase order metrics", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, newMetricsResponse(m))
}

// Dashboard renders the signed-in home page. Requestors see their order
// counts per status; other roles get the plain page.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())
	if principal.Role != RoleRequestor {
		h.render(w, r, "pages/home.html", "Dashboard", nil, http.StatusOK)
		return
	}
	requestorID, err := h.service.RequestorID(r.Context(), principal)
	if err != nil {
		if !errors.Is(err, ErrIdentityUnresolved) {
			h.logger.Error("resolve requestor", slog.Any("error", err))
		}
		h.render(w, r, "pages/home.html", "Dashboard", nil, http.StatusOK)
		return
	}
	m, err := h.service.Metrics(r.Context(), requestorID)
	if err != nil {
		h.logger.Error("purchase order metrics", slog.Any("error", err))
		h.render(w, r, "pages/home.html", "Dashboard", nil, http.StatusOK)
		return
	}
	h.render(w, r, "pages/home.html", "Dashboard", map[string]any{"Metrics": m}, http.StatusOK)
}

func (h *Handler) apiSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	httpx.JSON(w, http.StatusOK, CreateRequestSchema())
}

func (h *Handler) apiLastPrice(w http.ResponseWriter, r *http.Request) {
	description := strings.TrimSpace(r.URL.Query().Get("description"))
	if description == "" {
		httpx.ProblemWith(w, httpx.ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusUnprocessableEntity,
			Errors: map[string]string{"description": "The description field is required."},
		})
		return
	}
	rp, err := h.service.LookupPrice(r.Context(), chi.URLParam(r, "id"), description)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			httpx.RespondError(w, verr)
			return
		}
		h.logger.Error("lookup last price", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"supplier_id": chi.URLParam(r, "id"),
		"description": description,
		"unit_price":  rp.UnitPrice.StringFixed(2),
		"source":      rp.Source,
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var (
		flash *shared.FlashMessage
		user  *shared.Identity
	)
	if sess != nil {
		flash = sess.PopFlash()
	}
	if id, ok := shared.IdentityFromContext(r.Context()); ok {
		user = &id
	}
	viewData := view.TemplateData{Title: title, CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, User: user, Data: data}
	if err := h.templates.RenderStatus(w, status, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", template))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
