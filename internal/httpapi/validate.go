package httpapi

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bigwednesday/customer-api/store"
)

// requestValidator adapts validator/v10 to echo.Validator.
type requestValidator struct {
	validate *validator.Validate
}

func newValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(adjustmentRules, store.AdjustmentParams{})
	return &requestValidator{validate: v}
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

// adjustmentRules are the cross-field rules of price adjustments.
func adjustmentRules(sl validator.StructLevel) {
	p := sl.Current().Interface().(store.AdjustmentParams)

	if (p.Type == store.ValueOverride || p.Type == store.PercentageAdjustment) && p.Amount <= 0 {
		sl.ReportError(p.Amount, "amount", "Amount", "positive", string(p.Type))
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		sl.ReportError(p.EndDate, "end_date", "EndDate", "gtefield", "start_date")
	}
}

// validationMessage renders validator errors as one line per field.
func validationMessage(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%q is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%q must be a valid email", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%q must be one of [%s]", field, fe.Param()))
		case "positive":
			msgs = append(msgs, fmt.Sprintf("%q must be positive for type %s", field, fe.Param()))
		case "gtefield":
			msgs = append(msgs, fmt.Sprintf("%q must not be before %q", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%q failed %s validation", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, ". ")
}
