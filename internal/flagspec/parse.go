// SPDX-License-Identifier: MPL-2.0

package flagspec

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/podstrap/podstrap/internal/issue"
)

// Parsed is the validated output of a parse: canonical variable names mapped
// to string values, restricted to the declared spec set.
type Parsed struct {
	set    *Set
	values map[string]string
}

// Register installs the set's flags on fs. Help-kind specs are skipped
// because pflag reserves --help/-h handling for itself.
func (s *Set) Register(fs *pflag.FlagSet) {
	for _, spec := range s.specs {
		name := spec.Aliases[0]
		switch spec.Kind {
		case KindHelp:
			continue
		case KindBool:
			fs.BoolP(name, spec.Shorthand, false, spec.Usage)
		case KindValue:
			fs.StringP(name, spec.Shorthand, "", spec.Usage)
		case KindCIDR:
			fs.VarP(&cidrValue{}, name, spec.Shorthand, spec.Usage)
		case KindInt:
			fs.VarP(&intValue{}, name, spec.Shorthand, spec.Usage)
		}
	}
}

// Parse validates args against the set. Unknown flags and malformed values
// are ErrInvalidArgument (with usage text attached); --help/-h yields
// ErrHelpShown, a distinct non-error signal callers normalize to exit 0.
// Parsing stops at the first offending argument.
func (s *Set) Parse(args []string) (Parsed, error) {
	fs := pflag.NewFlagSet("flagspec", pflag.ContinueOnError)
	var usage bytes.Buffer
	fs.SetOutput(&usage)
	s.Register(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return Parsed{}, issue.NewContext(issue.ErrHelpShown).
				Operation("display usage").
				Resource(fs.FlagUsages()).
				Err()
		}
		return Parsed{}, issue.NewContext(issue.ErrInvalidArgument).
			Operation("parse command-line flags").
			Suggestion("Usage:\n" + fs.FlagUsages()).
			Wrap(err).
			Err()
	}
	return s.Collect(fs), nil
}

// Collect gathers the populated flags from an already-parsed FlagSet (for
// example one parsed by Cobra) into a Parsed mapping. Only flags that were
// actually set on the command line appear; booleans map to BoolTrue.
func (s *Set) Collect(fs *pflag.FlagSet) Parsed {
	p := Parsed{set: s, values: make(map[string]string)}
	for _, spec := range s.specs {
		if spec.Kind == KindHelp {
			continue
		}
		f := fs.Lookup(spec.Aliases[0])
		if f == nil || !f.Changed {
			continue
		}
		if spec.Kind == KindBool {
			p.values[spec.Name] = BoolTrue
			continue
		}
		p.values[spec.Name] = f.Value.String()
	}
	return p
}

// Populated returns the canonical names that were set, in declaration order.
func (p Parsed) Populated() []string {
	var names []string
	for _, spec := range p.set.specs {
		if _, ok := p.values[spec.Name]; ok {
			names = append(names, spec.Name)
		}
	}
	return names
}

// Require asserts that every given name was declared in the spec set. A miss
// means the caller reads a variable the contract never declared; that is a
// programming error, not a user error.
func (p Parsed) Require(names ...string) error {
	for _, name := range names {
		if !p.set.Declared(name) {
			return issue.NewContext(issue.ErrInternal).
				Operation("cross-check flag usage").
				Resource(name).
				Wrap(fmt.Errorf("variable read by caller but never declared in the flag spec")).
				Err()
		}
	}
	return nil
}

// String returns the value for a declared name, or def when unset.
func (p Parsed) String(name, def string) (string, error) {
	if err := p.Require(name); err != nil {
		return "", err
	}
	if v, ok := p.values[name]; ok {
		return v, nil
	}
	return def, nil
}

// Bool reports whether a declared boolean flag was set.
func (p Parsed) Bool(name string) (bool, error) {
	if err := p.Require(name); err != nil {
		return false, err
	}
	return p.values[name] == BoolTrue, nil
}

// Int returns the integer value for a declared name, or def when unset.
func (p Parsed) Int(name string, def int) (int, error) {
	if err := p.Require(name); err != nil {
		return 0, err
	}
	v, ok := p.values[name]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, issue.NewContext(issue.ErrInvalidArgument).
			Operation("parse integer flag").
			Resource(name).
			Wrap(err).
			Err()
	}
	return n, nil
}

// Len reports how many variables were populated.
func (p Parsed) Len() int { return len(p.values) }
