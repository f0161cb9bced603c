package services

import (
	"batepapo-uol-api/domain"
	"batepapo-uol-api/errors"
	goerrors "errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields under their JSON names, the ones clients actually send.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	// A participant named like the broadcast recipient would turn private messages into broadcasts.
	_ = v.RegisterValidation("notbroadcast", func(fl validator.FieldLevel) bool {
		return !strings.EqualFold(fl.Field().String(), domain.Everyone)
	})
	return v
}

type RegisterParticipantRequest struct {
	Name string `json:"name" validate:"required,notbroadcast"`
}

type PostMessageRequest struct {
	To   string `json:"to" validate:"required"`
	Text string `json:"text" validate:"required"`
	Type string `json:"type" validate:"required,oneof=message private_message"`
}

// validateStruct converts validator failures into an *errors.ValidationError
// listing every rejected field.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !goerrors.As(err, &validationErrors) {
		return err
	}
	fields := make([]errors.FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, errors.FieldError{Field: fe.Field(), Tag: fe.Tag()})
	}
	return &errors.ValidationError{Fields: fields}
}
