package purchasing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateRequestSchema(t *testing.T) {
	raw, err := json.Marshal(CreateRequestSchema())
	require.NoError(t, err)

	var doc struct {
		Type                 string                     `json:"type"`
		Required             []string                   `json:"required"`
		Properties           map[string]json.RawMessage `json:"properties"`
		AdditionalProperties json.RawMessage            `json:"additionalProperties"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, "object", doc.Type)
	require.ElementsMatch(t, []string{"supplier_id", "purpose", "date_requested", "delivery_date", "items"}, doc.Required)
	require.Contains(t, doc.Properties, "items")
	require.JSONEq(t, "false", string(doc.AdditionalProperties))
	require.Contains(t, string(doc.Properties["items"]), "unit_price")
}
