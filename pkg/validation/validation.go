// Package validation holds the input rules a submission must satisfy before it reaches the record store.
package validation

import (
	"strings"
	"unicode"

	apperrors "github.com/akeren/submission-history/pkg/errors"
	"github.com/go-playground/validator/v10"
)

const (
	FirstNameWhitespaceMessage = "No whitespace in first name is allowed"
	LastNameWhitespaceMessage  = "No whitespace in last name is allowed"

	noWhitespaceTag = "nowhitespace"
)

type submissionNames struct {
	FirstName string `json:"first_name" validate:"nowhitespace"`
	LastName  string `json:"last_name" validate:"nowhitespace"`
}

var whitespaceMessages = map[string]string{
	"first_name": FirstNameWhitespaceMessage,
	"last_name":  LastNameWhitespaceMessage,
}

// validator.Validate caches struct metadata and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation(noWhitespaceTag, noWhitespace); err != nil {
		panic(err)
	}
	return v
}

func noWhitespace(fl validator.FieldLevel) bool {
	return !HasWhitespace(fl.Field().String())
}

// HasWhitespace reports whether s contains any Unicode whitespace rune.
func HasWhitespace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}

func messageFor(jsonField, tag, _ string) string {
	if tag == noWhitespaceTag {
		if msg, ok := whitespaceMessages[jsonField]; ok {
			return msg
		}
	}
	return "Invalid value"
}

// ValidateSubmission returns nil when both names are acceptable, otherwise the violations keyed by field.
// Empty names pass: the only rule is the absence of whitespace.
func ValidateSubmission(firstName, lastName string) apperrors.FieldErrors {
	names := submissionNames{FirstName: firstName, LastName: lastName}

	err := validate.Struct(names)
	if err == nil {
		return nil
	}

	fields := apperrors.FormatValidationErrors(err, names, messageFor)
	if len(fields) == 0 {
		return nil
	}

	return fields
}
