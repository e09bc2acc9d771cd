package document

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

// ParseID parses a path id. Malformed ids are reported as ErrInvalidID.
func ParseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// ParseRef parses an optional reference field. Blank values yield nil.
func ParseRef(field string, raw *string) (*snowflake.ID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := ParseID(*raw)
	if err != nil {
		return nil, NewValidationError(field, "invalid_"+field, field+" must be a valid id")
	}
	return &id, nil
}

// RequireText reports a blank required text field.
func RequireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(field, "required", field+" is required")
	}
	return nil
}

// ParseReferences parses the optional project and customer references.
func ParseReferences(projectRef, customerRef *string) (References, error) {
	project, err := ParseRef("project_ref", projectRef)
	if err != nil {
		return References{}, err
	}
	customer, err := ParseRef("customer_ref", customerRef)
	if err != nil {
		return References{}, err
	}
	return References{ProjectRef: project, CustomerRef: customer}, nil
}
