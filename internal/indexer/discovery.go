package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// DiscoveredFile is a project file selected for indexing.
type DiscoveredFile struct {
	// RelPath is relative to the project root, always '/'-separated.
	RelPath string
	AbsPath string
	Size    int64
}

// FileDiscovery walks a project and selects text files by extension,
// exclude globs and size limit.
type FileDiscovery struct {
	rootDir    string
	extensions map[string]struct{}
	excludes   []compiledPattern
	maxBytes   int64
}

// NewFileDiscovery creates a discovery for rootDir. Extensions are matched
// case-insensitively and may be given with or without the leading dot.
// maxFileSizeKB <= 0 disables the size limit.
func NewFileDiscovery(rootDir string, extensions, excludePatterns []string, maxFileSizeKB int) (*FileDiscovery, error) {
	fd := &FileDiscovery{
		rootDir:    rootDir,
		extensions: make(map[string]struct{}, len(extensions)),
	}

	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		fd.extensions[ext] = struct{}{}
	}

	for _, pattern := range excludePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		fd.excludes = append(fd.excludes, compiledPattern{pattern: pattern, glob: g})
	}

	if maxFileSizeKB > 0 {
		fd.maxBytes = int64(maxFileSizeKB) * 1024
	}

	return fd, nil
}

// DiscoverFiles walks the tree and returns the selected files sorted by
// relative path. Excluded directories are not descended into.
func (fd *FileDiscovery) DiscoverFiles(ctx context.Context) ([]DiscoveredFile, error) {
	var files []DiscoveredFile

	err := filepath.WalkDir(fd.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == fd.rootDir {
				return err
			}
			// Unreadable entries below the root are skipped
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && fd.shouldExclude(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if !fd.hasTextExtension(relPath) || fd.shouldExclude(relPath, false) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if fd.maxBytes > 0 && info.Size() > fd.maxBytes {
			return nil
		}

		files = append(files, DiscoveredFile{
			RelPath: relPath,
			AbsPath: path,
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func (fd *FileDiscovery) hasTextExtension(relPath string) bool {
	_, ok := fd.extensions[strings.ToLower(filepath.Ext(relPath))]
	return ok
}

// shouldExclude checks a path against the exclude globs. Directories also
// match "dir/**" style patterns through their "dir/" form.
func (fd *FileDiscovery) shouldExclude(relPath string, isDir bool) bool {
	if fd.matchesAnyPattern(relPath) {
		return true
	}
	if isDir {
		return fd.matchesAnyPattern(relPath + "/")
	}
	return false
}

// matchesAnyPattern checks if a path matches any exclude pattern.
func (fd *FileDiscovery) matchesAnyPattern(path string) bool {
	for _, cp := range fd.excludes {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Root-level paths also match "**/"-prefixed patterns, so "**/*.min.js"
	// covers "app.min.js" as well as "web/app.min.js".
	if !strings.Contains(strings.TrimSuffix(path, "/"), "/") {
		for _, cp := range fd.excludes {
			if simplified, ok := strings.CutPrefix(cp.pattern, "**/"); ok {
				if g, err := glob.Compile(simplified, '/'); err == nil && g.Match(path) {
					return true
				}
			}
		}
	}

	return false
}
