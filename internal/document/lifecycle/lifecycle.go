// Package lifecycle implements closed status tables for document types.
package lifecycle

import (
	"slices"
	"strings"

	"github.com/smallbiznis/fieldbook/internal/document"
)

// Table is the status state machine of one document type. A transition is
// allowed only if it is listed in Transitions.
type Table[S ~string] struct {
	DocumentType document.Type
	Initial      S
	Transitions  map[S][]S
	Editable     []S
}

// Statuses lists every status known to the table, initial first.
func (t Table[S]) Statuses() []S {
	out := []S{t.Initial}
	seen := map[S]bool{t.Initial: true}
	add := func(s S) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	keys := make([]S, 0, len(t.Transitions))
	for from := range t.Transitions {
		keys = append(keys, from)
	}
	slices.Sort(keys)
	for _, from := range keys {
		add(from)
		for _, to := range t.Transitions[from] {
			add(to)
		}
	}
	return out
}

// Valid reports whether s belongs to the table.
func (t Table[S]) Valid(s S) bool {
	return slices.Contains(t.Statuses(), s)
}

// Parse converts raw input into a known status.
func (t Table[S]) Parse(raw string) (S, error) {
	s := S(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid(s) {
		var zero S
		return zero, document.NewValidationError("status", "invalid_status", "unknown "+string(t.DocumentType)+" status")
	}
	return s, nil
}

// Can reports whether from -> to is listed.
func (t Table[S]) Can(from, to S) bool {
	return slices.Contains(t.Transitions[from], to)
}

// Transition validates from -> to.
func (t Table[S]) Transition(from, to S) error {
	if !t.Can(from, to) {
		return &document.InvalidTransitionError{DocumentType: t.DocumentType, From: string(from), To: string(to)}
	}
	return nil
}

// IsEditable reports whether items and tax may change in status s.
func (t Table[S]) IsEditable(s S) bool {
	return slices.Contains(t.Editable, s)
}

// EnsureEditable fails with DocumentLockedError outside the editable statuses.
func (t Table[S]) EnsureEditable(s S) error {
	if !t.IsEditable(s) {
		return &document.DocumentLockedError{DocumentType: t.DocumentType, Status: string(s)}
	}
	return nil
}

// IsTerminal reports whether no transition leaves s.
func (t Table[S]) IsTerminal(s S) bool {
	return len(t.Transitions[s]) == 0
}
