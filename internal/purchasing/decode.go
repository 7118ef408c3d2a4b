package purchasing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
)

// ErrMalformedBody marks a creation body that is not a single JSON object
// of known fields.
var ErrMalformedBody = errors.New("purchasing: malformed request body")

// DecodeCreateRequest decodes a JSON creation body. Known fields holding a
// value of the wrong JSON type are reported as a *ValidationError, merged
// with what Validate finds in the remaining fields. Syntax errors, unknown
// fields and trailing data wrap ErrMalformedBody.
func DecodeCreateRequest(data []byte) (CreateRequest, error) {
	var req CreateRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err := dec.Decode(&req)
	if err == nil {
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return CreateRequest{}, fmt.Errorf("%w: unexpected trailing data", ErrMalformedBody)
		}
		return req, nil
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return CreateRequest{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return decodeFieldByField(data)
}

// decodeFieldByField walks the body one field at a time so each type
// mismatch is attributed to its own key.
func decodeFieldByField(data []byte) (CreateRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return CreateRequest{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	var (
		req    CreateRequest
		fields = map[string]string{}
	)
	for key, value := range raw {
		switch key {
		case "supplier_id":
			decodeText(value, key, &req.SupplierID, fields)
		case "purpose":
			decodeText(value, key, &req.Purpose, fields)
		case "date_requested":
			decodeText(value, key, &req.DateRequested, fields)
		case "delivery_date":
			decodeText(value, key, &req.DeliveryDate, fields)
		case "items":
			items, err := decodeItems(value, fields)
			if err != nil {
				return CreateRequest{}, err
			}
			req.Items = items
		default:
			return CreateRequest{}, fmt.Errorf("%w: unknown field %q", ErrMalformedBody, key)
		}
	}

	if _, err := Validate(req); err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return req, err
		}
		for key, msg := range verr.Fields {
			if _, taken := fields[key]; !taken {
				fields[key] = msg
			}
		}
	}
	if len(fields) == 0 {
		return req, nil
	}
	return req, newValidationError(ErrValidation, fields)
}

func decodeText(value json.RawMessage, key string, dst *string, fields map[string]string) {
	if isNull(value) {
		return
	}
	if err := json.Unmarshal(value, dst); err != nil {
		fields[key] = fmt.Sprintf("The %s must be a string.", fieldLabel(key))
	}
}

func decodeItems(value json.RawMessage, fields map[string]string) ([]ItemRequest, error) {
	if isNull(value) {
		return nil, nil
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(value, &rows); err != nil {
		fields["items"] = "The items field must be a list."
		return nil, nil
	}
	items := make([]ItemRequest, len(rows))
	for i, row := range rows {
		prefix := "items." + strconv.Itoa(i) + "."
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(row, &obj); err != nil {
			fields["items"] = fmt.Sprintf("Item %d must be an object.", i+1)
			continue
		}
		for key, v := range obj {
			switch key {
			case "item_description":
				decodeText(v, prefix+key, &items[i].ItemDescription, fields)
			case "quantity":
				items[i].Quantity = decodeQuantity(v, prefix+key, fields)
			case "unit_price":
				if err := items[i].UnitPrice.UnmarshalJSON(v); err != nil {
					fields[prefix+key] = fmt.Sprintf("The %s must be a non-negative amount.", fieldLabel(prefix+key))
				}
			default:
				return nil, fmt.Errorf("%w: unknown field %q", ErrMalformedBody, prefix+key)
			}
		}
	}
	return items, nil
}

// decodeQuantity accepts any JSON number with an integral value, including
// exponent forms such as 1e3. Strings, fractions and other types are
// reported against key.
func decodeQuantity(value json.RawMessage, key string, fields map[string]string) int {
	if isNull(value) {
		return 0
	}
	var n json.Number
	if bytes.HasPrefix(bytes.TrimSpace(value), []byte(`"`)) || json.Unmarshal(value, &n) != nil {
		fields[key] = notAnInteger(key)
		return 0
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil || !d.IsInteger() {
		fields[key] = notAnInteger(key)
		return 0
	}
	if d.GreaterThan(decimal.NewFromInt(MaxQuantity)) {
		fields[key] = fmt.Sprintf("The %s may not be greater than %d.", fieldLabel(key), MaxQuantity)
		return 0
	}
	if d.LessThan(decimal.NewFromInt(1)) {
		// Validate reports the lower bound.
		return -1
	}
	return int(d.IntPart())
}

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}
