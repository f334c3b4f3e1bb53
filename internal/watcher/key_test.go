package watcher

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for NormalizeKey:
// - Absolute, relative, dotted and trailing-slash spellings share one key
// - Symlinked spelling resolves to the target's key
// - Normalizing a key again returns the same key
// - Missing paths fall back to the absolute form
// - Backslashes are rewritten to '/'
// - Distinct directories get distinct keys
// - CanonicalPath keeps a backslash that is part of a Unix directory name
// - StartWatching such a directory watches and indexes it, not its slash twin

func TestNormalizeKey_EquivalentSpellings(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Chdir()
	base := t.TempDir()
	project := filepath.Join(base, "project")
	require.NoError(t, os.MkdirAll(filepath.Join(project, "sub"), 0755))

	want := NormalizeKey(project)

	t.Chdir(base)

	spellings := []string{
		project,
		project + string(filepath.Separator),
		filepath.Join(project, "sub", ".."),
		"project",
		"./project",
		filepath.Join(".", "project", "sub", ".."),
	}
	for _, s := range spellings {
		assert.Equal(t, want, NormalizeKey(s), "spelling %q", s)
	}
}

func TestNormalizeKey_Symlink(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	base := t.TempDir()
	target := filepath.Join(base, "target")
	link := filepath.Join(base, "link")
	require.NoError(t, os.Mkdir(target, 0755))
	require.NoError(t, os.Symlink(target, link))

	assert.Equal(t, NormalizeKey(target), NormalizeKey(link))
}

func TestNormalizeKey_Idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	missing := filepath.Join(dir, "does", "not", "exist")

	for _, p := range []string{dir, missing, "relative/path"} {
		key := NormalizeKey(p)
		assert.Equal(t, key, NormalizeKey(key.String()), "path %q", p)
	}
}

func TestNormalizeKey_MissingPathFallsBack(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "not-yet-created")
	abs, err := filepath.Abs(missing)
	require.NoError(t, err)

	key := NormalizeKey(missing)
	assert.True(t, filepath.IsAbs(filepath.FromSlash(key.String())))
	assert.True(t, strings.HasSuffix(key.String(), "/not-yet-created"))
	assert.Equal(t, filepath.ToSlash(abs), strings.ReplaceAll(key.String(), "\\", "/"))
}

func TestNormalizeKey_SeparatorsRewritten(t *testing.T) {
	t.Parallel()

	key := NormalizeKey(`C:\work\project`)
	assert.NotContains(t, key.String(), `\`)
	assert.True(t, strings.HasSuffix(key.String(), "project"))
}

func TestNormalizeKey_DistinctDirectories(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	a := filepath.Join(base, "a")
	b := filepath.Join(base, "b")
	require.NoError(t, os.Mkdir(a, 0755))
	require.NoError(t, os.Mkdir(b, 0755))

	assert.NotEqual(t, NormalizeKey(a), NormalizeKey(b))
}

func TestCanonicalPath_KeepsBackslashInName(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("backslash is a separator on windows")
	}

	base := t.TempDir()
	odd := filepath.Join(base, `a\b`)
	require.NoError(t, os.Mkdir(odd, 0755))

	canonical := CanonicalPath(odd)
	assert.True(t, strings.HasSuffix(canonical, `/a\b`), canonical)

	_, err := os.Stat(canonical)
	assert.NoError(t, err, "canonical path must exist on disk")
	assert.True(t, strings.HasSuffix(NormalizeKey(odd).String(), "/a/b"))
}

func TestManager_StartWatching_BackslashDirectory(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("backslash is a separator on windows")
	}

	base := t.TempDir()
	odd := filepath.Join(base, `a\b`)
	twin := filepath.Join(base, "a", "b")
	require.NoError(t, os.Mkdir(odd, 0755))
	require.NoError(t, os.MkdirAll(twin, 0755))

	idx := newFakeIndexer()
	m, err := NewManager(context.Background(), &fakeConfigSource{}, idx)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.Shutdown(ctx)
	})

	require.NoError(t, m.StartWatching(odd, nil, testDebounce))

	// A change in the look-alike directory must not trigger anything
	writeFile(t, twin, "main.go", "package twin")
	time.Sleep(4 * testDebounce)
	assert.Equal(t, 0, idx.callCount())

	writeFile(t, odd, "main.go", "package odd")
	waitFor(t, idx.done, "indexing run")
	assert.Equal(t, CanonicalPath(odd), idx.lastCall().root)
}

func TestProjectKey_Name(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "project", ProjectKey("/home/user/project").Name())
}
