// SPDX-License-Identifier: MPL-2.0

package asuser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/podstrap/podstrap/internal/issue"
)

// ResolveUnder joins a caller-supplied relative fragment onto root,
// canonicalizes it, and verifies the result still falls under root. Escaping
// fragments ("../../etc/passwd", absolute paths) are rejected before any
// mutation can see them.
func ResolveUnder(root, fragment string) (string, error) {
	if filepath.IsAbs(fragment) {
		return "", escapeError(root, fragment, fmt.Errorf("fragment is absolute"))
	}
	joined := filepath.Clean(filepath.Join(root, fragment))
	rel, err := filepath.Rel(root, joined)
	if err != nil {
		return "", escapeError(root, fragment, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", escapeError(root, fragment, fmt.Errorf("resolves to %s", joined))
	}
	return joined, nil
}

func escapeError(root, fragment string, cause error) error {
	return issue.NewContext(issue.ErrPathEscape).
		Operation("resolve path under " + root).
		Resource(fragment).
		Suggestion("Use a relative path that stays inside the target's home tree").
		Wrap(cause).
		Err()
}
