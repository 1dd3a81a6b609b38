// SPDX-License-Identifier: MPL-2.0

package flagspec

import (
	"fmt"
	"strings"

	"github.com/podstrap/podstrap/internal/issue"
)

// Kind classifies how a flag consumes arguments and validates its value.
type Kind string

const (
	// KindHelp short-circuits parsing and signals usage display.
	KindHelp Kind = "help"
	// KindBool consumes no following token.
	KindBool Kind = "bool"
	// KindValue requires exactly one following token.
	KindValue Kind = "value"
	// KindCIDR requires a dotted-quad/prefix-length token.
	KindCIDR Kind = "cidr"
	// KindInt requires a digits-only token.
	KindInt Kind = "int"
)

const (
	specFieldSep = ":"
	aliasSep     = "|"

	// BoolTrue is the sentinel value stored for a boolean flag that was set.
	BoolTrue = "true"
)

// Spec is one compiled flag specification.
type Spec struct {
	// Aliases in declaration order with leading dashes stripped; the first
	// one is canonical and determines Name.
	Aliases []string
	// Name is the canonical variable name (first alias, dashes become
	// underscores).
	Name string
	// Shorthand is the single-letter alias, if one was declared.
	Shorthand string
	Kind      Kind
	Usage     string
}

// ParseSpec compiles one "names:kind:description" spec string. The names
// field is further split on "|"; the description may itself contain colons.
func ParseSpec(raw string) (Spec, error) {
	parts := strings.SplitN(raw, specFieldSep, 3)
	if len(parts) != 3 {
		return Spec{}, issue.NewContext(issue.ErrInternal).
			Operation("compile flag spec").
			Resource(raw).
			Wrap(fmt.Errorf("want names%skind%sdescription, got %d fields", specFieldSep, specFieldSep, len(parts))).
			Err()
	}

	var s Spec
	for _, alias := range strings.Split(parts[0], aliasSep) {
		alias = strings.TrimLeft(alias, "-")
		if alias == "" {
			return Spec{}, issue.NewContext(issue.ErrInternal).
				Operation("compile flag spec").
				Resource(raw).
				Wrap(fmt.Errorf("empty alias")).
				Err()
		}
		if len(alias) == 1 {
			if s.Shorthand != "" {
				return Spec{}, issue.NewContext(issue.ErrInternal).
					Operation("compile flag spec").
					Resource(raw).
					Wrap(fmt.Errorf("multiple shorthand aliases %q and %q", s.Shorthand, alias)).
					Err()
			}
			s.Shorthand = alias
		}
		s.Aliases = append(s.Aliases, alias)
	}

	switch k := Kind(parts[1]); k {
	case KindHelp, KindBool, KindValue, KindCIDR, KindInt:
		s.Kind = k
	default:
		return Spec{}, issue.NewContext(issue.ErrInternal).
			Operation("compile flag spec").
			Resource(raw).
			Wrap(fmt.Errorf("unknown kind %q", parts[1])).
			Err()
	}

	s.Name = strings.ReplaceAll(s.Aliases[0], "-", "_")
	s.Usage = parts[2]
	return s, nil
}

// Set is a compiled, internally consistent list of Specs.
type Set struct {
	specs  []Spec
	byName map[string]Spec
}

// Compile parses and cross-validates a list of spec strings. Duplicate
// aliases or canonical names are programming errors, not user errors.
func Compile(raws ...string) (*Set, error) {
	set := &Set{byName: make(map[string]Spec, len(raws))}
	seenAlias := make(map[string]string)
	for _, raw := range raws {
		s, err := ParseSpec(raw)
		if err != nil {
			return nil, err
		}
		for _, alias := range s.Aliases {
			if prev, dup := seenAlias[alias]; dup {
				return nil, issue.NewContext(issue.ErrInternal).
					Operation("compile flag spec").
					Resource(raw).
					Wrap(fmt.Errorf("alias %q already declared by %q", alias, prev)).
					Err()
			}
			seenAlias[alias] = raw
		}
		if _, dup := set.byName[s.Name]; dup {
			return nil, issue.NewContext(issue.ErrInternal).
				Operation("compile flag spec").
				Resource(raw).
				Wrap(fmt.Errorf("canonical name %q already declared", s.Name)).
				Err()
		}
		set.specs = append(set.specs, s)
		set.byName[s.Name] = s
	}
	return set, nil
}

// MustCompile is Compile for package-level declarations; it panics on error
// because a bad spec string is a programming error caught by tests.
func MustCompile(raws ...string) *Set {
	set, err := Compile(raws...)
	if err != nil {
		panic(err)
	}
	return set
}

// Specs returns the compiled specs in declaration order.
func (s *Set) Specs() []Spec {
	out := make([]Spec, len(s.specs))
	copy(out, s.specs)
	return out
}

// Declared reports whether name is a declared canonical variable name.
func (s *Set) Declared(name string) bool {
	_, ok := s.byName[name]
	return ok
}
