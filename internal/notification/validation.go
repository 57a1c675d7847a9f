package notification

import (
	"errors"
	"reflect"
	"strings"

	"notification_hub/internal/common"
	"notification_hub/internal/identity"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("recipient", func(fl validator.FieldLevel) bool {
		return identity.ValidRecipient(fl.Field().String())
	})
	return v
}

// validateCreate checks req against the schema; blank text counts as missing.
func validateCreate(req *CreateRequest) error {
	req.Text = strings.TrimSpace(req.Text)
	req.ID = strings.TrimSpace(req.ID)

	if err := validate.Struct(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return &ValidationError{Fields: common.FormatValidationErrors(ve)}
		}
		return &ValidationError{Fields: map[string]string{"payload": err.Error()}}
	}
	return nil
}
