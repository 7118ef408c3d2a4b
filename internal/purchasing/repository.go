package purchasing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/procureflow/procureflow/internal/platform/db"
)

// numberConstraint is the unique constraint on purchase_order_number.
const numberConstraint = "purchase_orders_purchase_order_number_key"

type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	q queryer
}

// WithTx wraps fn in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: tx})
	})
}

func (t *txRepo) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := t.q.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders WHERE created_at >= $1 AND created_at < $2`, from, to).Scan(&n)
	return n, err
}

func (t *txRepo) InsertPurchaseOrder(ctx context.Context, po PurchaseOrder) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO purchase_orders (
			id, purchase_order_number, requestor_id, supplier_id, purpose,
			date_requested, delivery_date, shipping_fee, discount, subtotal, total, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		po.ID, po.Number, po.RequestorID, po.SupplierID, po.Purpose,
		po.DateRequested, po.DeliveryDate, po.ShippingFee, po.Discount, po.Subtotal, po.Total, po.CreatedAt)
	if db.IsUniqueViolation(err, numberConstraint) {
		return fmt.Errorf("%w: %s", ErrDuplicateNumber, po.Number)
	}
	return err
}

func (t *txRepo) InsertItem(ctx context.Context, item Item) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO items (id, purchase_order_id, item_description, quantity, unit_price, total_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.ID, item.PurchaseOrderID, item.Description, item.Quantity, item.UnitPrice, item.TotalCost, item.CreatedAt)
	return err
}

func (t *txRepo) StatusIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `SELECT id FROM statuses WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("status %q not seeded", name)
	}
	return id, err
}

func (t *txRepo) InsertApproval(ctx context.Context, a Approval) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO approvals (id, purchase_order_id, prepared_by_id, prepared_at, status_id, remarks)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.PurchaseOrderID, a.PreparedByID, a.PreparedAt, a.StatusID, a.Remarks)
	return err
}

// LatestUnitPrice returns the most recently recorded unit price for
// description under orders from supplierID.
func (r *Repository) LatestUnitPrice(ctx context.Context, supplierID uuid.UUID, description string) (decimal.Decimal, bool, error) {
	var price decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT i.unit_price
		FROM items i
		JOIN purchase_orders po ON po.id = i.purchase_order_id
		WHERE po.supplier_id = $1 AND i.item_description = $2
		ORDER BY i.created_at DESC, i.seq DESC
		LIMIT 1`, supplierID, description).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return price, true, nil
}

// latestApprovalJoin attaches the approval with the greatest prepared_at,
// ties broken by insertion order.
const latestApprovalJoin = `
	LEFT JOIN LATERAL (
		SELECT a.status_id, a.remarks, a.prepared_at
		FROM approvals a
		WHERE a.purchase_order_id = po.id
		ORDER BY a.prepared_at DESC, a.seq DESC
		LIMIT 1
	) la ON TRUE
	LEFT JOIN statuses st ON st.id = la.status_id`

// GetByNumber loads a purchase order by its human number.
func (r *Repository) GetByNumber(ctx context.Context, number string) (Detail, error) {
	var d Detail
	err := r.pool.QueryRow(ctx, `
		SELECT po.id, po.purchase_order_number, po.requestor_id, COALESCE(u.email, ''),
		       po.supplier_id, s.name, po.purpose, po.date_requested, po.delivery_date,
		       po.shipping_fee, po.discount, po.subtotal, po.total, po.created_at,
		       COALESCE(st.name, ''), COALESCE(la.remarks, ''), la.prepared_at
		FROM purchase_orders po
		JOIN suppliers s ON s.id = po.supplier_id
		LEFT JOIN users u ON u.id = po.requestor_id`+latestApprovalJoin+`
		WHERE po.purchase_order_number = $1`, number).Scan(
		&d.ID, &d.Number, &d.RequestorID, &d.RequestorEmail,
		&d.SupplierID, &d.SupplierName, &d.Purpose, &d.DateRequested, &d.DeliveryDate,
		&d.ShippingFee, &d.Discount, &d.Subtotal, &d.Total, &d.CreatedAt,
		&d.Status, &d.Remarks, &d.PreparedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Detail{}, ErrNotFound
	}
	if err != nil {
		return Detail{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, purchase_order_id, item_description, quantity, unit_price, total_cost, created_at
		FROM items
		WHERE purchase_order_id = $1
		ORDER BY seq`, d.ID)
	if err != nil {
		return Detail{}, err
	}
	defer rows.Close()
	d.Items = []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.PurchaseOrderID, &it.Description, &it.Quantity, &it.UnitPrice, &it.TotalCost, &it.CreatedAt); err != nil {
			return Detail{}, err
		}
		d.Items = append(d.Items, it)
	}
	return d, rows.Err()
}

// List returns purchase order summaries and the total match count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Summary, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.RequestorID != 0 {
		args = append(args, filter.RequestorID)
		where = append(where, fmt.Sprintf("po.requestor_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("st.name = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(po.purchase_order_number ILIKE $%[1]d OR po.purpose ILIKE $%[1]d OR s.name ILIKE $%[1]d)", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT po.id, po.purchase_order_number, po.requestor_id, COALESCE(u.email, ''), s.name,
		       po.purpose, po.delivery_date, COALESCE(st.name, ''), po.total, po.created_at,
		       COUNT(*) OVER ()
		FROM purchase_orders po
		JOIN suppliers s ON s.id = po.supplier_id
		LEFT JOIN users u ON u.id = po.requestor_id`+latestApprovalJoin+`
		%s
		ORDER BY po.created_at DESC, po.purchase_order_number DESC
		LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var (
		out   []Summary
		total int
	)
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Number, &s.RequestorID, &s.RequestorEmail, &s.SupplierName,
			&s.Purpose, &s.DeliveryDate, &s.Status, &s.Total, &s.CreatedAt, &total); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// StatusCounts groups a requestor's orders by latest status.
func (r *Repository) StatusCounts(ctx context.Context, requestorID int64) ([]StatusCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT COALESCE(st.name, ''), COUNT(*), COALESCE(SUM(po.total), 0)
		FROM purchase_orders po`+latestApprovalJoin+`
		WHERE po.requestor_id = $1
		GROUP BY st.name`, requestorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StatusCount
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Count, &c.Spend); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

var _ RepositoryPort = (*Repository)(nil)
