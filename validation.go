package sharedkernel

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// JSONTagName is a validator.TagNameFunc that reports fields by their JSON
// name, so that field errors match the request body. Fields tagged "-" are
// reported without a name.
func JSONTagName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	}
	return name
}

// NewValidator returns a validator whose field errors use JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(JSONTagName)
	return v
}
