// Package generr provides the structured error types probekit reports.
//
// Document-level errors (SpecParseError, ReferenceResolutionError) are fatal
// and abort a run before any file is written. Per-endpoint and per-schema
// errors are collected into a Report and presented in aggregate so a run
// generates everything that can be generated.
package generr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks.
var (
	ErrSpecParse  = errors.New("spec parse error")
	ErrResolution = errors.New("reference resolution error")
	ErrMapping    = errors.New("schema mapping error")
	ErrCollision  = errors.New("name collision")
	ErrConflict   = errors.New("reconciliation conflict")
)

// SpecParseError reports a document that is not valid JSON/YAML, lacks
// required top-level keys, or declares an unsupported OpenAPI version.
type SpecParseError struct {
	Source  string
	Message string
	Cause   error
}

func (e *SpecParseError) Error() string {
	msg := "invalid spec document"
	if e.Source != "" {
		msg += " " + e.Source
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SpecParseError) Unwrap() error        { return e.Cause }
func (e *SpecParseError) Is(target error) bool { return target == ErrSpecParse }

// ReferenceResolutionError reports a $ref pointer with an absent target.
// Chain is the stack of pointers being resolved, outermost first.
type ReferenceResolutionError struct {
	Ref   string
	Chain []string
	Cause error
}

func (e *ReferenceResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve %s", e.Ref)
	if len(e.Chain) > 0 {
		msg += " (via " + strings.Join(e.Chain, " -> ") + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ReferenceResolutionError) Unwrap() error        { return e.Cause }
func (e *ReferenceResolutionError) Is(target error) bool { return target == ErrResolution }

// SchemaMappingError reports a schema shape with no defined mapping.
// Fatal is set only when the shape is structurally required, such as a
// request body with no usable shape at all.
type SchemaMappingError struct {
	Context string // tag, path/method, or schema pointer
	Shape   string
	Fatal   bool
}

func (e *SchemaMappingError) Error() string {
	return fmt.Sprintf("no mapping for schema shape %q at %s", e.Shape, e.Context)
}

func (e *SchemaMappingError) Is(target error) bool { return target == ErrMapping }

// NameCollisionError reports two generated symbols that would silently
// overwrite each other. Fatal for the affected tag.
type NameCollisionError struct {
	Tag  string
	Name string
	A, B string // origins of the colliding symbols
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("tag %s: name %q generated by both %s and %s", e.Tag, e.Name, e.A, e.B)
}

func (e *NameCollisionError) Is(target error) bool { return target == ErrCollision }

// ReconcileConflictError reports an existing symbol whose identity is
// ambiguous. The symbol is left untouched and flagged for manual review.
type ReconcileConflictError struct {
	Symbol  string
	Message string
}

func (e *ReconcileConflictError) Error() string {
	return fmt.Sprintf("symbol %s: %s", e.Symbol, e.Message)
}

func (e *ReconcileConflictError) Is(target error) bool { return target == ErrConflict }
