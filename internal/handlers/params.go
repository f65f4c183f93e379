package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/aggregate"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/services"
)

const defaultDimension = aggregate.Month

// Params are the view options shared by the JSON API (query string) and the
// SSE endpoints (datastar signals).
type Params struct {
	Dimension      string `json:"dimension" validate:"omitempty,max=32"`
	Period         string `json:"period" validate:"omitempty,max=64"`
	Top            int    `json:"top" validate:"gte=0,lte=1000"`
	Strategy       string `json:"strategy" validate:"omitempty,max=16"`
	IgnoreSentinel *bool  `json:"ignoreSentinel"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// queryParams reads Params from the URL query. Malformed numbers and booleans
// are validation errors.
func queryParams(r *http.Request) (Params, error) {
	q := r.URL.Query()
	p := Params{
		Dimension: strings.TrimSpace(q.Get("dimension")),
		Period:    strings.TrimSpace(q.Get("period")),
		Strategy:  strings.TrimSpace(q.Get("strategy")),
	}

	if s := q.Get("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return p, errors.ValidationWrap(err, "top must be an integer")
		}
		p.Top = n
	}
	if s := q.Get("ignore_sentinel"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return p, errors.ValidationWrap(err, "ignore_sentinel must be true or false")
		}
		p.IgnoreSentinel = &b
	}
	return p, p.validate()
}

// signalParams reads Params from the datastar signals of an SSE request.
func signalParams(r *http.Request) (Params, error) {
	var p Params
	if err := datastar.ReadSignals(r, &p); err != nil {
		return p, errors.ValidationWrap(err, "invalid signals")
	}
	p.Dimension = strings.TrimSpace(p.Dimension)
	p.Period = strings.TrimSpace(p.Period)
	p.Strategy = strings.TrimSpace(p.Strategy)
	return p, p.validate()
}

func (p Params) validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.ValidationWrap(err, "invalid parameters")
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+" "+describe(fe))
	}
	appErr := errors.Validation("invalid parameters")
	appErr.Details = strings.Join(msgs, "; ")
	return appErr
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func (p Params) filters(defaults aggregate.Filters) aggregate.Filters {
	f := defaults
	if p.IgnoreSentinel != nil {
		f.IgnoreSentinelCustomer = *p.IgnoreSentinel
	}
	return f
}

func (p Params) dimension() (aggregate.Dimension, error) {
	if p.Dimension == "" {
		return defaultDimension, nil
	}
	return aggregate.ParseDimension(p.Dimension)
}

func (p Params) strategy(fallback aggregate.PurchaseCount) (aggregate.PurchaseCount, error) {
	if p.Strategy == "" {
		return fallback, nil
	}
	return aggregate.ParsePurchaseCount(p.Strategy)
}

func (p Params) top(fallback int) int {
	if p.Top > 0 {
		return p.Top
	}
	return fallback
}

// appError maps service and engine errors onto the API error envelope.
func appError(err error) *errors.AppError {
	if stderrors.Is(err, services.ErrNoData) {
		return errors.ServiceUnavailable("Sales data is not loaded")
	}
	return errors.FromAggregation(err)
}
