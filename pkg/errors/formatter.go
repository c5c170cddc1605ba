package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MessageFunc renders a human-readable message for a failed validation rule on a JSON field.
type MessageFunc func(jsonField, tag, param string) string

func msgForTag(_ string, tag, param string) string {
	switch tag {
	case "required":
		return "This field is required"
	case "min":
		if param != "" {
			return fmt.Sprintf("Must be at least %s characters", param)
		}
		return "Value is too short"
	case "max":
		if param != "" {
			return fmt.Sprintf("Must not exceed %s characters", param)
		}
		return "Value is too long"
	default:
		return "Invalid value"
	}
}

func getJSONFieldName(structType reflect.Type, fieldName string) string {
	if structType == nil {
		return fieldName
	}

	field, found := structType.FieldByName(fieldName)
	if !found {
		return fieldName
	}

	jsonTag := field.Tag.Get("json")
	if jsonTag == "" {
		return fieldName
	}

	return strings.Split(jsonTag, ",")[0]
}

// FormatValidationErrors converts binding and validator failures into a FieldErrors map keyed by JSON
// field name. A nil messages func falls back to generic per-tag messages. Errors that cannot be tied to
// a field yield an empty map.
func FormatValidationErrors(err error, model interface{}, messages MessageFunc) FieldErrors {
	fields := FieldErrors{}

	if err == nil {
		return fields
	}

	if messages == nil {
		messages = msgForTag
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		fields.Add(typeErr.Field, fmt.Sprintf("Invalid type for field %s. Expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value))
		return fields
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fields
	}

	var structType reflect.Type
	if model != nil {
		structType = reflect.TypeOf(model)
		if structType.Kind() == reflect.Ptr {
			structType = structType.Elem()
		}
	}

	for _, fieldError := range validationErrors {
		jsonField := getJSONFieldName(structType, fieldError.StructField())
		fields.Add(jsonField, messages(jsonField, fieldError.Tag(), fieldError.Param()))
	}

	return fields
}
