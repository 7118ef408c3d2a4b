package purchasing

import "time"

// Amounts are rendered as fixed two-decimal strings.

type createdResponse struct {
	ID          string `json:"id"`
	Number      string `json:"purchase_order_number"`
	Subtotal    string `json:"subtotal"`
	VAT         string `json:"vat"`
	ShippingFee string `json:"shipping_fee"`
	Discount    string `json:"discount"`
	Total       string `json:"total"`
	Status      string `json:"status"`
}

func newCreatedResponse(c Created) createdResponse {
	return createdResponse{
		ID:          c.ID.String(),
		Number:      c.Number,
		Subtotal:    c.Totals.Subtotal.StringFixed(2),
		VAT:         c.Totals.VAT.StringFixed(2),
		ShippingFee: c.Totals.ShippingFee.StringFixed(2),
		Discount:    c.Totals.Discount.StringFixed(2),
		Total:       c.Totals.Total.StringFixed(2),
		Status:      StatusDraft,
	}
}

type itemResponse struct {
	ID          string `json:"id"`
	Description string `json:"item_description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TotalCost   string `json:"total_cost"`
}

type detailResponse struct {
	ID             string         `json:"id"`
	Number         string         `json:"purchase_order_number"`
	RequestorID    int64          `json:"requestor_id"`
	RequestorEmail string         `json:"requestor_email"`
	SupplierID     string         `json:"supplier_id"`
	SupplierName   string         `json:"supplier_name"`
	Purpose        string         `json:"purpose"`
	DateRequested  string         `json:"date_requested"`
	DeliveryDate   string         `json:"delivery_date"`
	Status         string         `json:"status"`
	Remarks        string         `json:"remarks"`
	PreparedAt     *time.Time     `json:"prepared_at"`
	Subtotal       string         `json:"subtotal"`
	VAT            string         `json:"vat"`
	ShippingFee    string         `json:"shipping_fee"`
	Discount       string         `json:"discount"`
	Total          string         `json:"total"`
	CreatedAt      time.Time      `json:"created_at"`
	Items          []itemResponse `json:"items"`
}

func newDetailResponse(d Detail) detailResponse {
	out := detailResponse{
		ID:             d.ID.String(),
		Number:         d.Number,
		RequestorID:    d.RequestorID,
		RequestorEmail: d.RequestorEmail,
		SupplierID:     d.SupplierID.String(),
		SupplierName:   d.SupplierName,
		Purpose:        d.Purpose,
		DateRequested:  d.DateRequested.Format(DateLayout),
		DeliveryDate:   d.DeliveryDate.Format(DateLayout),
		Status:         d.Status,
		Remarks:        d.Remarks,
		PreparedAt:     d.PreparedAt,
		Subtotal:       d.Subtotal.StringFixed(2),
		VAT:            d.VAT().StringFixed(2),
		ShippingFee:    d.ShippingFee.StringFixed(2),
		Discount:       d.Discount.StringFixed(2),
		Total:          d.Total.StringFixed(2),
		CreatedAt:      d.CreatedAt,
		Items:          make([]itemResponse, 0, len(d.Items)),
	}
	for _, it := range d.Items {
		out.Items = append(out.Items, itemResponse{
			ID:          it.ID.String(),
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			TotalCost:   it.TotalCost.StringFixed(2),
		})
	}
	return out
}

type statusCountResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Spend  string `json:"spend"`
}

type metricsResponse struct {
	Total      int                   `json:"total"`
	TotalSpend string                `json:"total_spend"`
	ByStatus   []statusCountResponse `json:"by_status"`
}

func newMetricsResponse(m Metrics) metricsResponse {
	out := metricsResponse{
		Total:      m.Total,
		TotalSpend: m.TotalSpend.StringFixed(2),
		ByStatus:   make([]statusCountResponse, 0, len(m.ByStatus)),
	}
	for _, c := range m.ByStatus {
		out.ByStatus = append(out.ByStatus, statusCountResponse{Status: c.Status, Count: c.Count, Spend: c.Spend.StringFixed(2)})
	}
	return out
}
