// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

// ActionableError is an error with context for user-facing messages: what
// operation was being attempted, which identity or resource was involved, and
// suggestions for how to fix the problem.
//
// Use the Context builder for construction:
//
//	return issue.NewContext(issue.ErrExternalCommand).
//		Operation("build conmon").
//		Identity("podman").
//		Suggestion("Check that build dependencies are installed").
//		Wrap(err).
//		Err()
type ActionableError struct {
	// Kind is the taxonomy sentinel this error belongs to. Never nil.
	Kind error

	// Op describes what was being attempted ("resolve target account",
	// "fetch crun sources").
	Op string

	// Who names the target identity involved, when there is one.
	Who string

	// Resource identifies the file, path, or entity involved (optional).
	Resource string

	// Suggestions are actionable next steps for the user (optional).
	Suggestions []string

	// Cause is the underlying error (optional).
	Cause error
}

// Context is a builder for ActionableError values.
type Context struct {
	err ActionableError
}

// NewContext starts a builder for an error of the given kind.
func NewContext(kind error) *Context {
	return &Context{err: ActionableError{Kind: kind}}
}

// Operation sets the verb phrase describing what was being attempted.
func (c *Context) Operation(op string) *Context {
	c.err.Op = op
	return c
}

// Identity names the target identity involved.
func (c *Context) Identity(name string) *Context {
	c.err.Who = name
	return c
}

// Resource identifies the file, path, or entity involved.
func (c *Context) Resource(res string) *Context {
	c.err.Resource = res
	return c
}

// Suggestion adds one actionable next step. May be called repeatedly.
func (c *Context) Suggestion(s string) *Context {
	c.err.Suggestions = append(c.err.Suggestions, s)
	return c
}

// Wrap records the underlying cause.
func (c *Context) Wrap(err error) *Context {
	c.err.Cause = err
	return c
}

// Err materializes the ActionableError.
func (c *Context) Err() error {
	e := c.err
	return &e
}

// Error implements the error interface with the concise single-line form.
func (e *ActionableError) Error() string {
	var b strings.Builder
	b.WriteString("failed to ")
	b.WriteString(e.Op)
	if e.Who != "" {
		b.WriteString(" for user ")
		b.WriteString(e.Who)
	}
	if e.Resource != "" {
		b.WriteString(": ")
		b.WriteString(e.Resource)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both the taxonomy kind and the cause to errors.Is/As.
func (e *ActionableError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Format renders the error for terminal display. The non-verbose form is the
// single-line message followed by bulleted suggestions; verbose additionally
// prints the numbered cause chain.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())
	for _, s := range e.Suggestions {
		b.WriteString("\n  • ")
		b.WriteString(s)
	}
	if verbose && e.Cause != nil {
		b.WriteString("\n\nError chain:")
		depth := 1
		for err := e.Cause; err != nil; err = errors.Unwrap(err) {
			fmt.Fprintf(&b, "\n  %d. %s", depth, err.Error())
			depth++
		}
	}
	return b.String()
}
