package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSubmission_Valid(t *testing.T) {
	assert.Nil(t, ValidateSubmission("John", "Doe"))
}

func TestValidateSubmission_EmptyNamesPass(t *testing.T) {
	assert.Nil(t, ValidateSubmission("", ""))
}

func TestValidateSubmission_FirstNameWhitespace(t *testing.T) {
	fields := ValidateSubmission("John Doe", "Smith")

	assert.Equal(t, []string{FirstNameWhitespaceMessage}, fields["first_name"])
	assert.NotContains(t, fields, "last_name")
}

func TestValidateSubmission_LastNameWhitespace(t *testing.T) {
	fields := ValidateSubmission("John", "Doe Smith")

	assert.Equal(t, []string{LastNameWhitespaceMessage}, fields["last_name"])
	assert.NotContains(t, fields, "first_name")
}

func TestValidateSubmission_BothFields(t *testing.T) {
	fields := ValidateSubmission("John Doe", "Smith Jones")

	assert.Len(t, fields, 2)
	assert.Equal(t, []string{FirstNameWhitespaceMessage}, fields["first_name"])
	assert.Equal(t, []string{LastNameWhitespaceMessage}, fields["last_name"])
}

func TestValidateSubmission_OtherWhitespaceRunes(t *testing.T) {
	cases := []string{"a\tb", "a\nb", " lead", "trail ", "a b", "a\u00a0b"}

	for _, name := range cases {
		t.Run(name, func(t *testing.T) {
			fields := ValidateSubmission(name, "Doe")
			assert.Equal(t, []string{FirstNameWhitespaceMessage}, fields["first_name"])
		})
	}
}

func TestValidateSubmission_DoesNotNormalize(t *testing.T) {
	// Case and punctuation are not rules.
	assert.Nil(t, ValidateSubmission("jOhN", "O'Brien-Smith"))
}

func TestHasWhitespace(t *testing.T) {
	assert.False(t, HasWhitespace(""))
	assert.False(t, HasWhitespace("John"))
	assert.True(t, HasWhitespace("Jo hn"))
}
