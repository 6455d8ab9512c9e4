package generr

import (
	"fmt"
	"strings"
)

// Report accumulates per-item problems during a run. Warnings describe
// degraded output (untyped fallbacks); Errors describe items that were
// dropped and make the run exit non-zero.
type Report struct {
	warnings []string
	errors   []error
}

// Warnf records a degraded-but-generated item.
func (r *Report) Warnf(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// Add records an error for an item that could not be generated.
func (r *Report) Add(err error) {
	if err != nil {
		r.errors = append(r.errors, err)
	}
}

func (r *Report) Warnings() []string { return r.warnings }
func (r *Report) Errors() []error    { return r.errors }

// HasErrors reports whether any item was dropped.
func (r *Report) HasErrors() bool { return len(r.errors) > 0 }

// Empty reports whether there is nothing to show.
func (r *Report) Empty() bool { return len(r.warnings) == 0 && len(r.errors) == 0 }

// String renders the aggregate report, warnings first.
func (r *Report) String() string {
	var b strings.Builder
	for _, w := range r.warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	for _, e := range r.errors {
		fmt.Fprintf(&b, "error: %s\n", e)
	}
	return b.String()
}
