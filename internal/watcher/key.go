package watcher

import (
	"path"
	"path/filepath"
	"strings"
)

// ProjectKey is the canonical identity of a watched project directory.
// It is an absolute, symlink-resolved path using '/' as the only separator.
type ProjectKey string

// String returns the key as a plain path string.
func (k ProjectKey) String() string {
	return string(k)
}

// Name returns the last path element, used as the log prefix.
func (k ProjectKey) Name() string {
	return path.Base(string(k))
}

// NormalizeKey canonicalizes a project root into a ProjectKey.
//
// The path is made absolute and symlinks are resolved. If resolution fails
// (the path does not exist yet, or is not accessible) the absolute form is
// used, and if even that fails the literal input. Backslashes are then
// rewritten to '/', so Windows and Unix spellings of the same directory share
// a key. Normalizing a key again returns the same key.
func NormalizeKey(root string) ProjectKey {
	return keyFromPath(CanonicalPath(root))
}

// CanonicalPath resolves root to the native on-disk path that is watched and
// indexed. Unlike the key, its separators are left untouched: on Unix a
// backslash is an ordinary filename character.
func CanonicalPath(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return root
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

func keyFromPath(canonical string) ProjectKey {
	return ProjectKey(toSlash(canonical))
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
