package rate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"forexrates/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var ErrInvalidRequest = errors.New("invalid exchange rate request")

// RateInput is the body of create and update requests.
type RateInput struct {
	BaseCurrency  string          `json:"baseCurrency" validate:"required,min=3"`
	QuoteCurrency string          `json:"quoteCurrency" validate:"required,min=3"`
	BidPrice      decimal.Decimal `json:"bidPrice" validate:"required,gt=0" swaggertype:"number"`
	AskPrice      decimal.Decimal `json:"askPrice" validate:"required,gt=0" swaggertype:"number"`
	Timestamp     *time.Time      `json:"timestamp" validate:"required"`
}

// Normalize trims currency codes and upper-cases them.
func (in *RateInput) Normalize() {
	in.BaseCurrency = strings.ToUpper(strings.TrimSpace(in.BaseCurrency))
	in.QuoteCurrency = strings.ToUpper(strings.TrimSpace(in.QuoteCurrency))
}

func (in RateInput) ToRequest() domain.RateRequest {
	req := domain.RateRequest{
		Base:  in.BaseCurrency,
		Quote: in.QuoteCurrency,
		Bid:   in.BidPrice,
		Ask:   in.AskPrice,
	}
	if in.Timestamp != nil {
		req.Timestamp = in.Timestamp.UTC()
	}
	return req
}

var fieldMessages = map[string]map[string]string{
	"baseCurrency": {
		"required": "the base currency field is mandatory",
		"min":      "the base currency must have at least 3 letters",
	},
	"quoteCurrency": {
		"required": "the quote currency field is mandatory",
		"min":      "the quote currency must have at least 3 letters",
	},
	"bidPrice": {
		"required": "the bid price field is mandatory",
		"gt":       "the bid price should be greater than 0",
	},
	"askPrice": {
		"required": "the ask price field is mandatory",
		"gt":       "the ask price should be greater than 0",
	},
	"timestamp": {
		"required": "the timestamp field is mandatory",
	},
}

// RequestValidator checks RateInput bodies before they reach the service.
type RequestValidator struct {
	validate *validator.Validate
}

// Validate reports every failed rule joined into one error wrapping
// ErrInvalidRequest.
func (v *RequestValidator) Validate(in RateInput) error {
	err := v.validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.Field()][fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

func jsonTagName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonTagName)
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	return &RequestValidator{validate: v}
}
