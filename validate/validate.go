// Package validate implements the optional strict validation mode. Generated
// clients ship their source document embedded; attaching a Validator to the
// rest client checks every outgoing request against that document before it
// is sent. Test clients are unchecked by default so deliberately malformed
// calls go through; validation mode is opt-in per client.
package validate

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pb33f/libopenapi"
	validator "github.com/pb33f/libopenapi-validator"
	validatorErrors "github.com/pb33f/libopenapi-validator/errors"

	"github.com/kolah/probekit/rest"
)

// Validator validates outgoing requests against one OpenAPI document.
type Validator struct {
	v validator.Validator
}

// New builds a Validator from raw spec bytes (JSON or YAML).
func New(spec []byte) (*Validator, error) {
	doc, err := libopenapi.NewDocument(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing spec for validation mode: %w", err)
	}
	v, errs := validator.NewValidator(doc)
	if len(errs) > 0 {
		return nil, fmt.Errorf("building validator: %w", errs[0])
	}
	return &Validator{v: v}, nil
}

// PreHook returns a rest pre-request hook that rejects invalid requests.
func (v *Validator) PreHook() rest.PreHook {
	return func(req *http.Request) error {
		valid, errs := v.v.ValidateHttpRequestSync(req)
		if valid {
			return nil
		}
		return &Error{Request: req.Method + " " + req.URL.Path, Errors: errs}
	}
}

// Attach registers the validator on a client.
func (v *Validator) Attach(c *rest.Client) {
	c.PreHooks = append(c.PreHooks, v.PreHook())
}

// Error aggregates the validation failures of one rejected request.
type Error struct {
	Request string
	Errors  []*validatorErrors.ValidationError
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "request validation failed for %s", e.Request)
	for _, ve := range e.Errors {
		b.WriteString(": ")
		b.WriteString(ve.Message)
		if ve.Reason != "" {
			b.WriteString(" (" + ve.Reason + ")")
		}
	}
	return b.String()
}
