// SPDX-License-Identifier: MPL-2.0

package flagspec

import (
	"fmt"
	"strconv"
	"strings"
)

// cidrValue is a pflag.Value accepting only dotted-quad/prefix-length
// notation (a.b.c.d/n). IPv6 and bare addresses are rejected.
type cidrValue struct {
	value string
}

func (v *cidrValue) String() string { return v.value }

func (v *cidrValue) Type() string { return "cidr" }

func (v *cidrValue) Set(s string) error {
	if err := validateCIDR(s); err != nil {
		return err
	}
	v.value = s
	return nil
}

func validateCIDR(s string) error {
	addr, prefix, ok := strings.Cut(s, "/")
	if !ok {
		return fmt.Errorf("%q is not dotted-quad/prefix notation", s)
	}
	octets := strings.Split(addr, ".")
	if len(octets) != 4 {
		return fmt.Errorf("%q does not have four octets", s)
	}
	for _, o := range octets {
		n, err := parseDigits(o)
		if err != nil || n > 255 {
			return fmt.Errorf("%q has octet %q out of range", s, o)
		}
	}
	n, err := parseDigits(prefix)
	if err != nil || n > 32 {
		return fmt.Errorf("%q has prefix length %q out of range", s, prefix)
	}
	return nil
}

// intValue is a pflag.Value accepting digits-only tokens. Signs, hex, and
// whitespace are rejected, unlike strconv's more lenient integer parsers.
type intValue struct {
	value string
}

func (v *intValue) String() string { return v.value }

func (v *intValue) Type() string { return "int" }

func (v *intValue) Set(s string) error {
	if _, err := parseDigits(s); err != nil {
		return fmt.Errorf("%q is not a digits-only integer", s)
	}
	v.value = s
	return nil
}

func parseDigits(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit %q", r)
		}
	}
	return strconv.ParseUint(s, 10, 64)
}
