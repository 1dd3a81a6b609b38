// SPDX-License-Identifier: MPL-2.0

// Package issue defines the error taxonomy shared by every podstrap
// component, plus the ActionableError type used to render user-facing
// failures with operation context and fix suggestions.
package issue
