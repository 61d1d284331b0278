package convert

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"gbook/book"
	"gbook/config"
	"gbook/state"
)

type outputKind int

const (
	outputXML outputKind = iota
	outputDelta
)

func (k outputKind) String() string {
	switch k {
	case outputXML:
		return "xml"
	case outputDelta:
		return "delta"
	default:
		// this should never happen
		panic("unsupported output kind")
	}
}

func (k outputKind) ext() string {
	if k == outputDelta {
		return ".json"
	}
	return bookExt
}

// buildOutputPath returns constructed output file path/name based on various
// input parameters. It uses either default naming scheme or user-defined
// template and takes into account whether to preserve source directory
// structure on the output. It cleans up path and if requested transliterates
// it.
func buildOutputPath(doc *book.Document, src, dst string, kind outputKind, env *state.LocalEnv) string {
	outDir := determineOutputDir(src, dst, env)
	defaultFile := buildDefaultFileName(src, kind, env)

	if env.Cfg.Book.OutputNameTemplate == "" {
		return filepath.Join(outDir, defaultFile)
	}

	expandedName := expandOutputNameTemplate(doc, src, kind, env)
	if expandedName == "" {
		// fallback to default name if template expansion failed
		return filepath.Join(outDir, defaultFile)
	}

	return assemblePathWithSubdirs(outDir, expandedName, kind, env)
}

func determineOutputDir(src, dst string, env *state.LocalEnv) string {
	if env.NoDirs {
		return dst
	}
	return filepath.Join(dst, filepath.Dir(src))
}

func buildDefaultFileName(src string, kind outputKind, env *state.LocalEnv) string {
	baseName := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return cleanPathSegment(baseName, env) + kind.ext()
}

func expandOutputNameTemplate(doc *book.Document, src string, kind outputKind, env *state.LocalEnv) string {
	expandedName, err := expandTemplate(doc, src, config.OutputNameTemplateFieldName, env.Cfg.Book.OutputNameTemplate, kind)
	if err != nil {
		env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		return ""
	}
	expandedName = filepath.FromSlash(strings.TrimSpace(expandedName))
	if len(splitPath(expandedName)) == 0 {
		return ""
	}
	return expandedName
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output path,
// cleaning and transliterating segments as needed
func assemblePathWithSubdirs(outDir, expandedName string, kind outputKind, env *state.LocalEnv) string {
	pathSegments := splitPath(expandedName)
	if len(pathSegments) == 0 {
		return outDir
	}

	dirParts := make([]string, 0, len(pathSegments)+1)
	dirParts = append(dirParts, outDir)
	for _, segment := range pathSegments[:len(pathSegments)-1] {
		dirParts = append(dirParts, cleanPathSegment(segment, env))
	}
	dirParts = append(dirParts, cleanPathSegment(pathSegments[len(pathSegments)-1], env)+kind.ext())
	return filepath.Join(dirParts...)
}

// splitPath returns path elements dropping empty and relative ones, so
// template cannot escape destination directory.
func splitPath(path string) []string {
	segments := make([]string, 0, 8)
	for _, s := range strings.Split(path, string(os.PathSeparator)) {
		if s == "" || s == "." || s == ".." {
			continue
		}
		segments = append(segments, s)
	}
	return slices.Clip(segments)
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Book.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
