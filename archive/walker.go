// Package archive visits book files stored in zip archives.
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// WalkFunc is called for every file visited by Walk. The archive argument is
// the path passed to Walk. If an error is returned, walking stops.
type WalkFunc func(archive string, file *zip.File) error

// Walk calls walkFn for every regular file located at or under prefix inside
// archive. Files are visited in natural order of their names regardless of
// the order they were stored in. Archives with entries escaping archive root
// are rejected before anything is visited.
func Walk(archive, prefix string, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	prefix = strings.Trim(prefix, "/")

	files := make([]*zip.File, 0, len(r.File))
	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !inside(name, prefix) {
			continue
		}
		files = append(files, f)
	}
	sort.SliceStable(files, func(i, j int) bool {
		return natural.Less(files[i].FileHeader.Name, files[j].FileHeader.Name)
	})

	for _, f := range files {
		if err := walkFn(archive, f); err != nil {
			return err
		}
	}
	return nil
}

// inside reports whether name is prefix itself or is located in prefix
// directory. Empty prefix matches everything.
func inside(name, prefix string) bool {
	if len(prefix) == 0 {
		return true
	}
	return name == prefix || strings.HasPrefix(name, prefix+"/")
}

// isSafePath returns false for absolute paths and paths containing ".."
// components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) || (len(name) > 1 && name[1] == ':') {
		return false
	}
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return false
		}
	}
	return true
}
