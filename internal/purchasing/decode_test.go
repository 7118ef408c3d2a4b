package purchasing

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeCreateRequestStrictPath(t *testing.T) {
	raw, err := json.Marshal(validRequest())
	require.NoError(t, err)

	req, err := DecodeCreateRequest(raw)
	require.NoError(t, err)
	require.Equal(t, validRequest(), req)
}

func TestDecodeCreateRequestMalformed(t *testing.T) {
	for name, raw := range map[string]string{
		"syntax":        `{"purpose":`,
		"empty":         ``,
		"trailing":      `{"purpose":"a"} {}`,
		"unknown field": `{"supplier":"x"}`,
		"unknown item":  `{"items":[{"sku":"x"}]}`,
		"unknown typed": `{"purpose":5,"extra":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCreateRequest([]byte(raw))
			require.ErrorIs(t, err, ErrMalformedBody)
		})
	}
}

func TestDecodeCreateRequestTypeErrors(t *testing.T) {
	raw := `{"supplier_id":["x"],"purpose":"Office laptops","date_requested":"2024-05-01","delivery_date":"2024-05-15",` +
		`"items":[{"item_description":"Laptop","quantity":"10"},{"item_description":"Mouse","quantity":1.5,"unit_price":true},` +
		`{"item_description":"Desk","quantity":1e3},{"item_description":"Chair","quantity":5000000000}]}`

	req, err := DecodeCreateRequest([]byte(raw))
	require.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	require.Equal(t, "The supplier id must be a string.", verr.Fields["supplier_id"])
	require.Equal(t, "The item 1 quantity must be an integer.", verr.Fields["items.0.quantity"])
	require.Equal(t, "The item 2 quantity must be an integer.", verr.Fields["items.1.quantity"])
	require.Equal(t, "The item 2 unit price must be a non-negative amount.", verr.Fields["items.1.unit_price"])
	require.Equal(t, "The item 4 quantity may not be greater than 2147483647.", verr.Fields["items.3.quantity"])
	require.NotContains(t, verr.Fields, "items.2.quantity")
	require.NotContains(t, verr.Fields, "purpose")

	require.Len(t, req.Items, 4)
	require.Equal(t, 1000, req.Items[2].Quantity)
}

func TestDecodeCreateRequestMergesRemainingValidation(t *testing.T) {
	raw := `{"purpose":"","items":[{"item_description":"Laptop","quantity":-3}],"delivery_date":7}`

	_, err := DecodeCreateRequest([]byte(raw))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "The delivery date must be a string.", verr.Fields["delivery_date"])
	require.Contains(t, verr.Fields, "purpose")
	require.Contains(t, verr.Fields, "supplier_id")
	require.Contains(t, verr.Fields, "items.0.quantity")
}
