package purchasing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of date fields.
const DateLayout = "2006-01-02"

// OptionalPrice is a unit price as submitted. It accepts a JSON number, a
// JSON string or null; empty means "not supplied".
type OptionalPrice string

// UnmarshalJSON implements json.Unmarshaler.
func (p *OptionalPrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = OptionalPrice(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unit_price must be a number or string")
	}
	*p = OptionalPrice(n.String())
	return nil
}

// CreateRequest is the raw creation payload.
type CreateRequest struct {
	SupplierID    string        `json:"supplier_id" validate:"required,uuid" jsonschema:"format=uuid,description=Supplier identifier"`
	Purpose       string        `json:"purpose" validate:"required,max=255" jsonschema:"maxLength=255"`
	DateRequested string        `json:"date_requested" validate:"required,datetime=2006-01-02" jsonschema:"format=date"`
	DeliveryDate  string        `json:"delivery_date" validate:"required,datetime=2006-01-02" jsonschema:"format=date"`
	Items         []ItemRequest `json:"items" validate:"required,min=1,dive" jsonschema:"minItems=1"`
}

// ItemRequest is one submitted line.
type ItemRequest struct {
	ItemDescription string        `json:"item_description" validate:"required,max=255" jsonschema:"maxLength=255"`
	Quantity        int           `json:"quantity" validate:"required,gte=1,lte=2147483647" jsonschema:"minimum=1,maximum=2147483647"`
	UnitPrice       OptionalPrice `json:"unit_price,omitempty" validate:"omitempty,price,price_max" jsonschema:"oneof_type=string;number,description=Optional non-negative unit price up to 999999999999.99"`
}

// ValidCreate is a CreateRequest that passed validation.
type ValidCreate struct {
	SupplierID    uuid.UUID
	Purpose       string
	DateRequested time.Time
	DeliveryDate  time.Time
	Items         []ValidItem
}

// ValidItem is a validated line. UnitPrice is nil when not supplied.
type ValidItem struct {
	Description string
	Quantity    int
	UnitPrice   *decimal.Decimal
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		return err == nil && !d.IsNegative()
	})
	_ = v.RegisterValidation("price_max", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		return err == nil && normalizePrice(d).LessThanOrEqual(MaxAmount)
	})
	return v
}

// Normalize trims surrounding whitespace from text fields.
func (r CreateRequest) Normalize() CreateRequest {
	out := r
	out.SupplierID = strings.TrimSpace(r.SupplierID)
	out.Purpose = strings.TrimSpace(r.Purpose)
	out.DateRequested = strings.TrimSpace(r.DateRequested)
	out.DeliveryDate = strings.TrimSpace(r.DeliveryDate)
	out.Items = make([]ItemRequest, len(r.Items))
	for i, it := range r.Items {
		out.Items[i] = ItemRequest{
			ItemDescription: strings.TrimSpace(it.ItemDescription),
			Quantity:        it.Quantity,
			UnitPrice:       OptionalPrice(strings.TrimSpace(string(it.UnitPrice))),
		}
	}
	return out
}

// Validate checks req and converts it to a ValidCreate. On failure the
// error is a *ValidationError.
func Validate(req CreateRequest) (ValidCreate, error) {
	req = req.Normalize()
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return ValidCreate{}, err
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			key := fieldKey(fe.Namespace())
			if _, exists := fields[key]; !exists {
				fields[key] = fieldMessage(key, fe)
			}
		}
		return ValidCreate{}, newValidationError(ErrValidation, fields)
	}

	out := ValidCreate{
		SupplierID: uuid.MustParse(req.SupplierID),
		Purpose:    req.Purpose,
		Items:      make([]ValidItem, 0, len(req.Items)),
	}
	out.DateRequested, _ = time.Parse(DateLayout, req.DateRequested)
	out.DeliveryDate, _ = time.Parse(DateLayout, req.DeliveryDate)
	for _, it := range req.Items {
		item := ValidItem{Description: it.ItemDescription, Quantity: it.Quantity}
		if it.UnitPrice != "" {
			price := normalizePrice(decimal.RequireFromString(string(it.UnitPrice)))
			item.UnitPrice = &price
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// fieldKey turns "CreateRequest.items[0].quantity" into "items.0.quantity".
func fieldKey(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		rest = namespace
	}
	rest = strings.ReplaceAll(rest, "[", ".")
	return strings.ReplaceAll(rest, "]", "")
}

func fieldLabel(key string) string {
	parts := strings.Split(key, ".")
	label := strings.ReplaceAll(parts[len(parts)-1], "_", " ")
	if len(parts) == 3 {
		if idx, err := strconv.Atoi(parts[1]); err == nil {
			return fmt.Sprintf("item %d %s", idx+1, label)
		}
	}
	return label
}

func fieldMessage(key string, fe validator.FieldError) string {
	label := fieldLabel(key)
	switch fe.Tag() {
	case "required":
		if key == "items" {
			return "At least one item is required."
		}
		return fmt.Sprintf("The %s field is required.", label)
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s characters.", label, fe.Param())
	case "min":
		return "At least one item is required."
	case "gte":
		return fmt.Sprintf("The %s must be at least %s.", label, fe.Param())
	case "lte":
		return fmt.Sprintf("The %s may not be greater than %s.", label, fe.Param())
	case "uuid":
		return fmt.Sprintf("The selected %s is invalid.", label)
	case "datetime":
		return fmt.Sprintf("The %s is not a valid date.", label)
	case "price":
		return fmt.Sprintf("The %s must be a non-negative amount.", label)
	case "price_max":
		return amountTooLarge(label)
	default:
		return fmt.Sprintf("The %s is invalid.", label)
	}
}

func amountTooLarge(label string) string {
	return fmt.Sprintf("The %s may not be greater than %s.", label, MaxAmount.StringFixed(2))
}

func notAnInteger(key string) string {
	return fmt.Sprintf("The %s must be an integer.", fieldLabel(key))
}
