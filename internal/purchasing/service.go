package purchasing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxNumberAttempts bounds retries when a generated number collides.
const maxNumberAttempts = 3

// RepositoryPort describes persistence used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	LatestUnitPrice(ctx context.Context, supplierID uuid.UUID, description string) (decimal.Decimal, bool, error)
	GetByNumber(ctx context.Context, number string) (Detail, error)
	List(ctx context.Context, filter ListFilter) ([]Summary, int, error)
	StatusCounts(ctx context.Context, requestorID int64) ([]StatusCount, error)
}

// TxRepository exposes the writes of the creation transaction.
type TxRepository interface {
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
	InsertPurchaseOrder(ctx context.Context, po PurchaseOrder) error
	InsertItem(ctx context.Context, item Item) error
	StatusIDByName(ctx context.Context, name string) (int64, error)
	InsertApproval(ctx context.Context, approval Approval) error
}

// SupplierDirectory checks supplier references.
type SupplierDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// UserDirectory resolves requestor accounts.
type UserDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
	FindIDByEmail(ctx context.Context, email string) (int64, bool, error)
}

// MetricsCache caches requestor metrics.
type MetricsCache interface {
	Key(ctx context.Context, parts ...string) (string, error)
	Fetch(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
}

// CreatedEvent describes a committed purchase order.
type CreatedEvent struct {
	ID             uuid.UUID
	Number         string
	RequestorID    int64
	RequestorEmail string
	SupplierID     uuid.UUID
	Purpose        string
	ItemCount      int
	Totals         Totals
	CreatedAt      time.Time
}

// CreatedListener is notified after the creation transaction commits.
// Listener errors are logged and never affect the created order.
type CreatedListener interface {
	PurchaseOrderCreated(ctx context.Context, evt CreatedEvent) error
}

// FailureRecorder counts failed creations by kind.
type FailureRecorder interface {
	CreationFailed(kind string)
}

// ServiceConfig groups optional Service settings.
type ServiceConfig struct {
	Policy   Policy
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
	Cache    MetricsCache
	Failures FailureRecorder
}

// Service implements purchase order creation and queries.
type Service struct {
	repo      RepositoryPort
	suppliers SupplierDirectory
	users     UserDirectory
	policy    Policy
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
	cache     MetricsCache
	failures  FailureRecorder
	listeners []CreatedListener
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, suppliers SupplierDirectory, users UserDirectory, cfg ServiceConfig, listeners ...CreatedListener) *Service {
	if cfg.Policy.VATRate.IsZero() && cfg.Policy.ShippingFee.IsZero() && cfg.Policy.Discount.IsZero() {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		repo:      repo,
		suppliers: suppliers,
		users:     users,
		policy:    cfg.Policy,
		loc:       cfg.Location,
		now:       cfg.Now,
		logger:    cfg.Logger,
		cache:     cfg.Cache,
		failures:  cfg.Failures,
		listeners: listeners,
	}
}

// Policy returns the money policy in use.
func (s *Service) Policy() Policy {
	return s.policy
}

// CreatePurchaseOrder validates req, prices its items and persists the
// order, its items and a Draft approval in one transaction.
func (s *Service) CreatePurchaseOrder(ctx context.Context, principal Principal, req CreateRequest) (Created, error) {
	created, err := s.create(ctx, principal, req)
	if err != nil && s.failures != nil {
		s.failures.CreationFailed(failureKind(err))
	}
	return created, err
}

func (s *Service) create(ctx context.Context, principal Principal, req CreateRequest) (Created, error) {
	if principal.Role != RoleRequestor {
		return Created{}, ErrForbidden
	}

	input, err := Validate(req)
	if err != nil {
		return Created{}, err
	}

	exists, err := s.suppliers.Exists(ctx, input.SupplierID)
	if err != nil {
		return Created{}, fmt.Errorf("purchasing: check supplier: %w", err)
	}
	if !exists {
		return Created{}, newValidationError(ErrUnknownSupplier, map[string]string{
			"supplier_id": "The selected supplier id is invalid.",
		})
	}

	requestorID, err := s.resolveRequestor(ctx, principal)
	if err != nil {
		return Created{}, err
	}

	lines, err := s.priceItems(ctx, input.SupplierID, input.Items)
	if err != nil {
		return Created{}, err
	}
	totals := s.policy.Compute(lines)
	if err := checkAmounts(lines, totals); err != nil {
		return Created{}, err
	}

	var (
		po       PurchaseOrder
		lastSeq  int
		attempts int
	)
	for {
		attempts++
		now := s.now()
		po = PurchaseOrder{
			ID:            uuid.New(),
			RequestorID:   requestorID,
			SupplierID:    input.SupplierID,
			Purpose:       input.Purpose,
			DateRequested: input.DateRequested,
			DeliveryDate:  input.DeliveryDate,
			ShippingFee:   totals.ShippingFee,
			Discount:      totals.Discount,
			Subtotal:      totals.Subtotal,
			Total:         totals.Total,
			CreatedAt:     now,
		}
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			from, to := dayBounds(now, s.loc)
			count, err := tx.CountCreatedBetween(ctx, from, to)
			if err != nil {
				return fmt.Errorf("count today's orders: %w", err)
			}
			seq := count + 1
			if seq <= lastSeq {
				seq = lastSeq + 1
			}
			lastSeq = seq
			po.Number = FormatNumber(from, seq)

			if err := tx.InsertPurchaseOrder(ctx, po); err != nil {
				return fmt.Errorf("insert purchase order: %w", err)
			}
			for _, line := range lines {
				item := Item{
					ID:              uuid.New(),
					PurchaseOrderID: po.ID,
					Description:     line.Description,
					Quantity:        line.Quantity,
					UnitPrice:       line.UnitPrice,
					TotalCost:       line.TotalCost(),
					CreatedAt:       now,
				}
				if err := tx.InsertItem(ctx, item); err != nil {
					return fmt.Errorf("insert item: %w", err)
				}
			}
			statusID, err := tx.StatusIDByName(ctx, StatusDraft)
			if err != nil {
				return fmt.Errorf("lookup status %q: %w", StatusDraft, err)
			}
			approval := Approval{
				ID:              uuid.New(),
				PurchaseOrderID: po.ID,
				PreparedByID:    requestorID,
				PreparedAt:      now,
				StatusID:        statusID,
				Remarks:         InitialRemarks,
			}
			if err := tx.InsertApproval(ctx, approval); err != nil {
				return fmt.Errorf("insert approval: %w", err)
			}
			return nil
		})
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateNumber) && attempts < maxNumberAttempts {
			s.logger.Warn("purchase order number collision, retrying",
				slog.String("po_number", po.Number), slog.Int("attempt", attempts))
			continue
		}
		perr := &PersistenceError{Err: err, Stack: debug.Stack()}
		s.logger.Error("create purchase order failed",
			slog.Any("error", err),
			slog.Int64("requestor_id", requestorID),
			slog.String("supplier_id", input.SupplierID.String()),
			slog.String("stack", string(perr.Stack)))
		return Created{}, perr
	}

	s.logger.Info("purchase order created",
		slog.String("po_number", po.Number),
		slog.String("id", po.ID.String()),
		slog.Int64("requestor_id", requestorID),
		slog.String("total", totals.Total.StringFixed(2)))

	s.notifyCreated(ctx, CreatedEvent{
		ID:             po.ID,
		Number:         po.Number,
		RequestorID:    requestorID,
		RequestorEmail: principal.Email,
		SupplierID:     po.SupplierID,
		Purpose:        po.Purpose,
		ItemCount:      len(lines),
		Totals:         totals,
		CreatedAt:      po.CreatedAt,
	})
	return Created{ID: po.ID, Number: po.Number, Totals: totals}, nil
}

// RequestorID resolves the principal to a user id the same way creation
// does, so read endpoints keep working for sessions with a stale id.
func (s *Service) RequestorID(ctx context.Context, p Principal) (int64, error) {
	return s.resolveRequestor(ctx, p)
}

// resolveRequestor returns the principal's user id, falling back to an
// email lookup when the id no longer exists.
func (s *Service) resolveRequestor(ctx context.Context, p Principal) (int64, error) {
	if p.UserID != 0 {
		ok, err := s.users.Exists(ctx, p.UserID)
		if err != nil {
			return 0, fmt.Errorf("purchasing: check requestor: %w", err)
		}
		if ok {
			return p.UserID, nil
		}
	}
	if p.Email != "" {
		id, ok, err := s.users.FindIDByEmail(ctx, p.Email)
		if err != nil {
			return 0, fmt.Errorf("purchasing: recover requestor: %w", err)
		}
		if ok {
			s.logger.Warn("recovered stale session user id",
				slog.Int64("session_user_id", p.UserID), slog.Int64("user_id", id))
			return id, nil
		}
	}
	return 0, ErrIdentityUnresolved
}

// priceItems resolves unit prices: explicit price, else the supplier's most
// recent price for the same description, else zero. Lookups run before the
// write transaction.
func (s *Service) priceItems(ctx context.Context, supplierID uuid.UUID, items []ValidItem) ([]Line, error) {
	lines := make([]Line, 0, len(items))
	seen := make(map[string]ResolvedPrice)
	for _, it := range items {
		var rp ResolvedPrice
		if it.UnitPrice != nil {
			rp = ResolvedPrice{UnitPrice: *it.UnitPrice, Source: PriceExplicit}
		} else if cached, ok := seen[it.Description]; ok {
			rp = cached
		} else {
			var err error
			rp, err = s.historicalPrice(ctx, supplierID, it.Description)
			if err != nil {
				return nil, err
			}
			seen[it.Description] = rp
		}
		lines = append(lines, Line{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   rp.UnitPrice,
			Source:      rp.Source,
		})
	}
	return lines, nil
}

func (s *Service) historicalPrice(ctx context.Context, supplierID uuid.UUID, description string) (ResolvedPrice, error) {
	price, ok, err := s.repo.LatestUnitPrice(ctx, supplierID, description)
	if err != nil {
		return ResolvedPrice{}, fmt.Errorf("purchasing: historical price: %w", err)
	}
	if !ok {
		return ResolvedPrice{UnitPrice: decimal.Zero, Source: PriceDefault}, nil
	}
	return ResolvedPrice{UnitPrice: normalizePrice(price), Source: PriceHistorical}, nil
}

// LookupPrice returns the price an item without an explicit price would get.
func (s *Service) LookupPrice(ctx context.Context, supplierID, description string) (ResolvedPrice, error) {
	id, err := uuid.Parse(supplierID)
	if err != nil {
		return ResolvedPrice{}, newValidationError(ErrValidation, map[string]string{"supplier_id": "The selected supplier id is invalid."})
	}
	return s.historicalPrice(ctx, id, description)
}

func (s *Service) notifyCreated(ctx context.Context, evt CreatedEvent) {
	// Listeners run after commit and must not inherit a cancelled request.
	ctx = context.WithoutCancel(ctx)
	for _, l := range s.listeners {
		if err := l.PurchaseOrderCreated(ctx, evt); err != nil {
			s.logger.Warn("purchase order listener failed",
				slog.String("po_number", evt.Number), slog.Any("error", err))
		}
	}
}

// GetByNumber returns the purchase order with its latest status and items.
func (s *Service) GetByNumber(ctx context.Context, number string) (Detail, error) {
	if number == "" {
		return Detail{}, ErrNotFound
	}
	return s.repo.GetByNumber(ctx, number)
}

// ListForRequestor lists the requestor's own orders.
func (s *Service) ListForRequestor(ctx context.Context, requestorID int64, filter ListFilter) ([]Summary, int, error) {
	if requestorID == 0 {
		return nil, 0, ErrForbidden
	}
	filter.RequestorID = requestorID
	return s.repo.List(ctx, filter)
}

// ListAll lists every order for review.
func (s *Service) ListAll(ctx context.Context, filter ListFilter) ([]Summary, int, error) {
	filter.RequestorID = 0
	return s.repo.List(ctx, filter)
}

// Metrics summarises the requestor's orders by latest status.
func (s *Service) Metrics(ctx context.Context, requestorID int64) (Metrics, error) {
	load := func(ctx context.Context) (any, error) {
		return s.loadMetrics(ctx, requestorID)
	}
	if s.cache == nil {
		m, err := s.loadMetrics(ctx, requestorID)
		return m, err
	}
	key, err := s.cache.Key(ctx, "requestor", strconv.FormatInt(requestorID, 10))
	if err != nil {
		s.logger.Warn("metrics cache key", slog.Any("error", err))
		return s.loadMetrics(ctx, requestorID)
	}
	var m Metrics
	if err := s.cache.Fetch(ctx, key, &m, load); err != nil {
		return Metrics{}, err
	}
	return m, nil
}

func (s *Service) loadMetrics(ctx context.Context, requestorID int64) (Metrics, error) {
	counts, err := s.repo.StatusCounts(ctx, requestorID)
	if err != nil {
		return Metrics{}, err
	}
	byName := make(map[string]StatusCount, len(counts))
	for _, c := range counts {
		byName[c.Status] = c
	}
	m := Metrics{TotalSpend: decimal.Zero, ByStatus: make([]StatusCount, 0, len(Statuses))}
	for _, name := range Statuses {
		c, ok := byName[name]
		if !ok {
			c = StatusCount{Status: name, Spend: decimal.Zero}
		}
		delete(byName, name)
		m.ByStatus = append(m.ByStatus, c)
	}
	for _, c := range counts {
		if _, extra := byName[c.Status]; extra {
			m.ByStatus = append(m.ByStatus, c)
		}
		m.Total += c.Count
		m.TotalSpend = m.TotalSpend.Add(c.Spend)
	}
	return m, nil
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownSupplier):
		return "unknown_supplier"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrIdentityUnresolved):
		return "identity"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "internal"
	}
}
