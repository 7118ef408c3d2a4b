package purchasing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status names seeded in the statuses table, in lifecycle order.
const (
	StatusDraft    = "Draft"
	StatusPending  = "Pending"
	StatusVerified = "Verified"
	StatusApproved = "Approved"
	StatusReceived = "Received"
	StatusRejected = "Rejected"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []string{StatusDraft, StatusPending, StatusVerified, StatusApproved, StatusReceived, StatusRejected}

// InitialRemarks is stamped on the approval created with a purchase order.
const InitialRemarks = "Created"

// RoleRequestor is the only role allowed to create purchase orders.
const RoleRequestor = "requestor"

// Principal is the caller identity taken from the session.
type Principal struct {
	UserID int64
	Email  string
	Role   string
}

// PurchaseOrder is the aggregate root persisted in purchase_orders.
type PurchaseOrder struct {
	ID            uuid.UUID
	Number        string
	RequestorID   int64
	SupplierID    uuid.UUID
	Purpose       string
	DateRequested time.Time
	DeliveryDate  time.Time
	ShippingFee   decimal.Decimal
	Discount      decimal.Decimal
	Subtotal      decimal.Decimal
	Total         decimal.Decimal
	CreatedAt     time.Time
}

// VAT is derived from the stored totals.
func (po PurchaseOrder) VAT() decimal.Decimal {
	return po.Total.Sub(po.Subtotal)
}

// Item is a purchase order line.
type Item struct {
	ID              uuid.UUID
	PurchaseOrderID uuid.UUID
	Description     string
	Quantity        int
	UnitPrice       decimal.Decimal
	TotalCost       decimal.Decimal
	CreatedAt       time.Time
}

// Approval is a status-stamped review record for a purchase order.
type Approval struct {
	ID              uuid.UUID
	PurchaseOrderID uuid.UUID
	PreparedByID    int64
	PreparedAt      time.Time
	StatusID        int64
	Remarks         string
}

// Detail is the read model returned by number lookups.
type Detail struct {
	PurchaseOrder
	RequestorEmail string
	SupplierName   string
	Status         string
	Remarks        string
	PreparedAt     *time.Time
	Items          []Item
}

// OwnedBy reports whether p is the requestor of the order. The email is
// compared as well so that a principal whose id went stale still matches.
func (d Detail) OwnedBy(p Principal) bool {
	if p.UserID != 0 && d.RequestorID == p.UserID {
		return true
	}
	return p.Email != "" && d.RequestorEmail != "" && strings.EqualFold(d.RequestorEmail, p.Email)
}

// Summary is one row of a purchase order listing.
type Summary struct {
	ID             uuid.UUID
	Number         string
	RequestorID    int64
	RequestorEmail string
	SupplierName   string
	Purpose        string
	DeliveryDate   time.Time
	Status         string
	Total          decimal.Decimal
	CreatedAt      time.Time
}

// ListFilter narrows purchase order listings.
type ListFilter struct {
	RequestorID int64
	Status      string
	Search      string
	Page        int
	PerPage     int
}

// StatusCount is the number of orders whose latest approval carries Status.
type StatusCount struct {
	Status string          `json:"status"`
	Count  int             `json:"count"`
	Spend  decimal.Decimal `json:"spend"`
}

// Metrics summarises a requestor's purchase orders.
type Metrics struct {
	Total      int             `json:"total"`
	TotalSpend decimal.Decimal `json:"total_spend"`
	ByStatus   []StatusCount   `json:"by_status"`
}

// Created is returned after a successful creation.
type Created struct {
	ID     uuid.UUID
	Number string
	Totals Totals
}

// PriceSource tells where a resolved unit price came from.
type PriceSource string

const (
	PriceExplicit   PriceSource = "explicit"
	PriceHistorical PriceSource = "historical"
	PriceDefault    PriceSource = "default"
)

// ResolvedPrice is a unit price with its provenance.
type ResolvedPrice struct {
	UnitPrice decimal.Decimal
	Source    PriceSource
}
