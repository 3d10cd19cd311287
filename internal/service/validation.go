package service

import (
	"database/sql"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/database"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

// NewValidator returns a validator that knows the term and examtype tags and reports json field names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	_ = v.RegisterValidation("term", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseTerm(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("examtype", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseExamType(fl.Field().String())
		return ok
	})
	return v
}

// fieldErrors flattens validator errors. row is attached to every detail when non-nil.
func fieldErrors(err error, row *int) []appErrors.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []appErrors.FieldError{{Row: row, Field: "", Message: err.Error()}}
	}
	out := make([]appErrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, appErrors.FieldError{Row: row, Field: fieldPath(fe), Message: ruleMessage(fe)})
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "term":
		return "must be one of FIRST, SECOND, THIRD"
	case "examtype":
		return "must be midterm or final"
	case "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func validationError(message string, details []appErrors.FieldError) error {
	return appErrors.WithDetails(appErrors.ErrValidation, message, details)
}

func forbidden(message string) error {
	return appErrors.Clone(appErrors.ErrForbidden, message)
}

// storeError classifies a repository failure: unreachable stores become retryable STORE_UNAVAILABLE,
// anything else an internal error whose detail stays in the logs.
func storeError(err error, message string) error {
	if database.IsUnavailable(err) {
		return appErrors.WithCause(appErrors.ErrStoreUnavailable, err, "")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func requireActor(actor *models.Actor) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing caller identity")
	}
	return nil
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
