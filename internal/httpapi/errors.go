package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"cafepos/backend/internal/auth"
	"cafepos/backend/internal/pricing"
	"cafepos/backend/internal/service"
	"cafepos/backend/internal/store"
	"cafepos/backend/internal/upstream"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

type validationError struct {
	fields map[string]string
}

func (e *validationError) Error() string {
	names := make([]string, 0, len(e.fields))
	for name := range e.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

// decodeJSON reads a single JSON document into dest and runs its validate
// tags. An empty body is treated as an empty object.
func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("validation failed: %w", err)
	}
	fields := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		fields[fieldErr.Field()] = validationMessage(fieldErr)
	}
	return &validationError{fields: fields}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	}
	return "is invalid"
}

// statusFor maps service, engine and collaborator errors onto HTTP statuses.
// Specific errors are checked before the generic collaborator failure since
// a collaborator error may wrap, say, an upstream 404.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, auth.ErrInvalidPIN), errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, upstream.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized

	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, upstream.ErrNotFound),
		errors.Is(err, pricing.ErrLineNotFound),
		errors.Is(err, pricing.ErrDiscountNotFound),
		errors.Is(err, pricing.ErrSaleItemNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrInventoryConflict),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, pricing.ErrMaxQuantityReached),
		errors.Is(err, pricing.ErrQuantityBelowDiscounted),
		errors.Is(err, pricing.ErrOrderNotRefundable):
		return http.StatusConflict

	case errors.Is(err, pricing.ErrRefundWindowExpired),
		errors.Is(err, pricing.ErrRefundExceedsAvailable),
		errors.Is(err, pricing.ErrPartialRefundNotOffered),
		errors.Is(err, pricing.ErrSelectionExceedsAvail),
		errors.Is(err, pricing.ErrDiscountNotApplicable),
		errors.Is(err, pricing.ErrMinSpendNotMet):
		return http.StatusUnprocessableEntity

	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, store.ErrInvalid),
		errors.Is(err, auth.ErrPINTooShort),
		errors.Is(err, pricing.ErrInvalidItem),
		errors.Is(err, pricing.ErrInvalidAddon),
		errors.Is(err, pricing.ErrEmptyCart),
		errors.Is(err, pricing.ErrEmptySelection),
		errors.Is(err, pricing.ErrGCashReferenceRequired),
		errors.Is(err, pricing.ErrInvalidPaymentMethod),
		errors.Is(err, pricing.ErrEmptyRefundSelection),
		errors.Is(err, pricing.ErrRefundReasonRequired):
		return http.StatusBadRequest

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, service.ErrCollaborator):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}
