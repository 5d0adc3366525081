// Package reporter accumulates compiler diagnostics the way fidlc's
// ErrorReporter does: every fallible operation records a diagnostic and
// keeps going rather than unwinding the stack. See test_library.h's
// error_reporter_, errors(), warnings(), set_warnings_as_errors.
package reporter

import (
	"fmt"

	"go.uber.org/multierr"

	"go.fuchsia.dev/fidlcore/source"
)

// Kind classifies a diagnostic by the taxonomy in spec §7. It never affects
// control flow, only presentation.
type Kind string

const (
	KindSyntax        Kind = "syntax"
	KindName          Kind = "name"
	KindType          Kind = "type"
	KindAttribute     Kind = "attribute"
	KindOrdinal       Kind = "ordinal"
	KindLayout        Kind = "layout"
	KindConfiguration Kind = "configuration"
)

type severity int

const (
	severityWarning severity = iota
	severityError
)

// Diagnostic is one reported error or warning.
type Diagnostic struct {
	Kind     Kind
	Span     source.Span
	Message  string
	severity severity
}

func (d Diagnostic) IsError() bool { return d.severity == severityError }

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Span, d.Message)
}

func (d Diagnostic) Error() string { return d.String() }

// Reporter is the single sink for every diagnostic produced while
// compiling one or more libraries. It never panics and never aborts a
// phase: callers keep calling Errorf/Warnf and inspect HasErrors/errors()
// afterward, mirroring fidl::ErrorReporter's design (spec §7).
type Reporter struct {
	diagnostics     []Diagnostic
	warningsAsErrors bool
}

func New() *Reporter {
	return &Reporter{}
}

// SetWarningsAsErrors mirrors ErrorReporter::set_warnings_as_errors: once
// set, every subsequent Warnf call is recorded (and counted) as an error.
func (r *Reporter) SetWarningsAsErrors(v bool) {
	r.warningsAsErrors = v
}

func (r *Reporter) Errorf(kind Kind, span source.Span, format string, args ...interface{}) {
	r.diagnostics = append(r.diagnostics, Diagnostic{
		Kind:     kind,
		Span:     span,
		Message:  fmt.Sprintf(format, args...),
		severity: severityError,
	})
}

func (r *Reporter) Warnf(kind Kind, span source.Span, format string, args ...interface{}) {
	sev := severityWarning
	if r.warningsAsErrors {
		sev = severityError
	}
	r.diagnostics = append(r.diagnostics, Diagnostic{
		Kind:     kind,
		Span:     span,
		Message:  fmt.Sprintf(format, args...),
		severity: sev,
	})
}

// HasErrors reports whether any diagnostic accumulated so far is an error
// (including warnings promoted by SetWarningsAsErrors).
func (r *Reporter) HasErrors() bool {
	for _, d := range r.diagnostics {
		if d.IsError() {
			return true
		}
	}
	return false
}

func (r *Reporter) Diagnostics() []Diagnostic {
	return r.diagnostics
}

// Errors returns only the error-severity diagnostics, in report order.
func (r *Reporter) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.diagnostics {
		if d.IsError() {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only the warning-severity diagnostics, in report order.
func (r *Reporter) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.diagnostics {
		if !d.IsError() {
			out = append(out, d)
		}
	}
	return out
}

// AsError combines every error-severity diagnostic into a single error via
// multierr, for callers that want a plain `error` after a whole-library
// compile rather than walking the diagnostic slice themselves. Returns nil
// if there are no errors.
func (r *Reporter) AsError() error {
	var errs error
	for _, d := range r.Errors() {
		errs = multierr.Append(errs, d)
	}
	return errs
}

// Checkpoint lets a bounded operation (one compile phase, one declaration)
// observe whether any new diagnostics were added since it started, without
// needing to difference slices itself. Mirrors fidl::ErrorReporter's
// Checkpoint API, used to short-circuit later phases (spec §4.9, §7).
type Checkpoint struct {
	r        *Reporter
	startLen int
}

func (r *Reporter) Checkpoint() Checkpoint {
	return Checkpoint{r: r, startLen: len(r.diagnostics)}
}

// NoNewErrors reports whether no error-severity diagnostic has been added
// to the Reporter since the checkpoint was taken.
func (c Checkpoint) NoNewErrors() bool {
	for _, d := range c.r.diagnostics[c.startLen:] {
		if d.IsError() {
			return false
		}
	}
	return true
}

// NumNewDiagnostics returns how many diagnostics (of any severity) have
// been added since the checkpoint.
func (c Checkpoint) NumNewDiagnostics() int {
	return len(c.r.diagnostics) - c.startLen
}
