package utils

import (
	"os"
	"path/filepath"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// ErrPathOutsideRoot rejects document names that would leave the documents root
var ErrPathOutsideRoot = errors.Sentinel(errors.ErrorTypeValidation, "PATH_OUTSIDE_ROOT", "path is outside the documents root")

// ResolveInRoot maps a relative document name onto a path below root.
// Absolute names, names with ".." components and names that reach outside
// root through a symlink are rejected. An empty root leaves name unchanged.
func ResolveInRoot(root, name string) (string, error) {
	if root == "" {
		return name, nil
	}
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return "", errors.Derive(ErrPathOutsideRoot, "path %q is outside the documents root", name)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", errors.NewStorageError("resolve documents root", err)
	}
	full := filepath.Join(absRoot, local)

	realRoot, err := filepath.EvalSymlinks(absRoot)
	if os.IsNotExist(err) {
		// nothing below a missing root can be a link
		return full, nil
	}
	if err != nil {
		return "", errors.NewStorageError("resolve documents root", err)
	}

	existing := full
	for existing != absRoot {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		existing = filepath.Dir(existing)
	}
	real, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", errors.Derive(ErrPathOutsideRoot, "path %q cannot be resolved inside the documents root", name)
	}
	rel, err := filepath.Rel(realRoot, real)
	if err != nil || (rel != "." && !filepath.IsLocal(rel)) {
		return "", errors.Derive(ErrPathOutsideRoot, "path %q is outside the documents root", name)
	}
	return full, nil
}
