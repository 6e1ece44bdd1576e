package extract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSectionAbsent reports that a configured section heading was not found.
	ErrSectionAbsent = errors.New("resumex: section absent")
	// ErrFieldFormat reports a line that could not be split into label and value.
	ErrFieldFormat = errors.New("resumex: malformed field")
	// ErrRequiredFieldMissing reports required keys left at their defaults.
	ErrRequiredFieldMissing = errors.New("resumex: required field missing")
	// ErrSchemaViolation reports a record rejected by the validation schema.
	ErrSchemaViolation = errors.New("resumex: record violates validation schema")
)

// FieldFormatError is a recoverable problem with a single line or heading.
type FieldFormatError struct {
	Section string
	Line    string
	Reason  string
}

func (e *FieldFormatError) Error() string {
	return fmt.Sprintf("section %q: %s: %q", e.Section, e.Reason, e.Line)
}

func (e *FieldFormatError) Is(target error) bool { return target == ErrFieldFormat }

// RequiredFieldMissingError lists the required keys that were not filled.
type RequiredFieldMissingError struct {
	Fields []string
}

func (e *RequiredFieldMissingError) Error() string {
	return "required fields missing: " + strings.Join(e.Fields, ", ")
}

func (e *RequiredFieldMissingError) Is(target error) bool { return target == ErrRequiredFieldMissing }
