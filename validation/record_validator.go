// Package validation checks medicine records and user input at the API
// boundary.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/giygas/medigraph/entities"
	"github.com/giygas/medigraph/interfaces"
)

// Maximum length of a free-text question.
const maxQuestionLength = 500

var (
	// Dangerous patterns in free-text questions
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"eval(", "expression(", "${", "$(", "`",
		"../", "..\\", "%2e%2e", "file://",
	}
)

// FieldError describes one invalid field using the record's JSON path.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// RecordValidator implements interfaces.RecordValidator
type RecordValidator struct {
	validate *validator.Validate
}

// Compile-time check to ensure RecordValidator implements RecordValidator
var _ interfaces.RecordValidator = (*RecordValidator)(nil)

// NewRecordValidator creates a validator that reports JSON field names.
func NewRecordValidator() *RecordValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RecordValidator{validate: v}
}

// ValidateMedicine checks required fields, including the keys of nested
// sub-records that are present. The first failure is returned as a
// *FieldError.
func (v *RecordValidator) ValidateMedicine(m *entities.Medicine) error {
	if m == nil {
		return &FieldError{Field: "record", Reason: "record is nil"}
	}

	err := v.validate.Struct(m)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &FieldError{Field: fieldPath(fe.Namespace()), Reason: reason(fe)}
	}
	return fmt.Errorf("failed to validate medicine: %w", err)
}

// ValidateQuestion validates a free-text question sent to the graph.
func (v *RecordValidator) ValidateQuestion(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("question cannot be empty")
	}

	if len(input) < 3 {
		return fmt.Errorf("question too short: minimum 3 characters")
	}

	if len(input) > maxQuestionLength {
		return fmt.Errorf("question too long: maximum %d characters", maxQuestionLength)
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("question contains potentially dangerous content")
		}
	}

	if hasExcessiveRepetition(input) {
		return fmt.Errorf("question contains excessive character repetition")
	}

	return nil
}

// fieldPath drops the struct name from a validator namespace such as
// "Medicine.drug_interactions[0].drug_name".
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx != -1 {
		return namespace[idx+1:]
	}
	return namespace
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// hasExcessiveRepetition reports the same character repeated more than 10
// times in a row
func hasExcessiveRepetition(input string) bool {
	run := 1
	for i := 1; i < len(input); i++ {
		if input[i] == input[i-1] {
			run++
			if run > 10 {
				return true
			}
			continue
		}
		run = 1
	}
	return false
}
