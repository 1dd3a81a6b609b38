// SPDX-License-Identifier: MPL-2.0

// Package flagspec is a declarative command-line contract: a list of compact
// spec strings ("--user|-u:value:target account") is compiled into a Set,
// registered on a pflag.FlagSet, and parsed into a validated name→value
// mapping. Malformed values (CIDR, integer) are rejected during parsing, and
// a cross-check lets callers assert that every variable they read was
// actually declared, catching spec/usage drift as an internal error.
package flagspec
