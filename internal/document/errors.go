package document

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is matching on the typed engine errors below.
var (
	ErrValidation           = errors.New("validation_error")
	ErrInvalidTransition    = errors.New("invalid_transition")
	ErrDocumentLocked       = errors.New("document_locked")
	ErrConversionNotAllowed = errors.New("conversion_not_allowed")
	ErrAlreadyConverted     = errors.New("already_converted")

	ErrNotFound        = errors.New("not_found")
	ErrInvalidID       = errors.New("invalid_id")
	ErrVersionConflict = errors.New("version_conflict")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError reports malformed input. It always carries at least one field.
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Code: code, Message: message}}}
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation error"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Prefix qualifies every field with prefix, e.g. "items[2]".
func (e *ValidationError) Prefix(prefix string) *ValidationError {
	out := &ValidationError{Fields: make([]FieldError, 0, len(e.Fields))}
	for _, f := range e.Fields {
		if f.Field == "" {
			f.Field = prefix
		} else {
			f.Field = prefix + "." + f.Field
		}
		out.Fields = append(out.Fields, f)
	}
	return out
}

// InvalidTransitionError is returned when a status change is not in the type's table.
type InvalidTransitionError struct {
	DocumentType Type
	From         string
	To           string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %q to %q", e.DocumentType, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// DocumentLockedError is returned when content is edited outside an editable status.
type DocumentLockedError struct {
	DocumentType Type
	Status       string
}

func (e *DocumentLockedError) Error() string {
	return fmt.Sprintf("%s is locked in status %q", e.DocumentType, e.Status)
}

func (e *DocumentLockedError) Is(target error) bool { return target == ErrDocumentLocked }

// ConversionNotAllowedError is returned when a conversion source is in the wrong status.
type ConversionNotAllowedError struct {
	SourceType Type
	Status     string
	Required   string
}

func (e *ConversionNotAllowedError) Error() string {
	return fmt.Sprintf("%s in status %q cannot be converted, requires %q", e.SourceType, e.Status, e.Required)
}

func (e *ConversionNotAllowedError) Is(target error) bool { return target == ErrConversionNotAllowed }

// AlreadyConvertedError guards against billing the same source twice.
type AlreadyConvertedError struct {
	SourceType Type
	SourceID   string
	// InvoiceID is set for single-shot sources such as service calls.
	InvoiceID string
	// Remaining is the percentage still available on percentage-tracked sources.
	Remaining string
}

func (e *AlreadyConvertedError) Error() string {
	switch {
	case e.InvoiceID != "":
		return fmt.Sprintf("%s %s was already invoiced by %s", e.SourceType, e.SourceID, e.InvoiceID)
	case e.Remaining != "":
		return fmt.Sprintf("%s %s has only %s%% left to invoice", e.SourceType, e.SourceID, e.Remaining)
	default:
		return fmt.Sprintf("%s %s was already converted", e.SourceType, e.SourceID)
	}
}

func (e *AlreadyConvertedError) Is(target error) bool { return target == ErrAlreadyConverted }

// AsValidation returns the ValidationError inside err, if any.
func AsValidation(err error) *ValidationError {
	var vErr *ValidationError
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}
