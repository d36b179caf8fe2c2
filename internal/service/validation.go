package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	appErrors "github.com/noah-isme/academy-portal-api/pkg/errors"
)

// NewValidator returns a validator reporting JSON field names in its errors.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// validationError converts validator output into a 400 listing the offending fields.
func validationError(err error, message string) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fields := make([]string, 0, len(fieldErrs))
		seen := make(map[string]struct{}, len(fieldErrs))
		for _, fe := range fieldErrs {
			name := fe.Field()
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			fields = append(fields, name)
		}
		message = fmt.Sprintf("%s: %s", message, strings.Join(fields, ", "))
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// validID reports whether id can address a UUID-keyed row. Anything else is treated as not found.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
