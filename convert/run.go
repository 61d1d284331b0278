// Package convert implements command line actions over book files,
// directories and zip archives.
package convert

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"gbook/archive"
	"gbook/book"
	"gbook/bookxml"
	"gbook/config"
	"gbook/delta"
	"gbook/state"
	"gbook/text"
)

// bookSource is a single book found in the input.
type bookSource struct {
	r   io.Reader
	enc srcEncoding
	// part of the source path (always including file name) relative to the
	// original path
	name string
	// actual file on disk, empty for books inside archives
	path string
}

type bookFunc func(ctx context.Context, b bookSource) error

// Check loads every book found in sources and reports problems. It fails
// when at least one book could not be loaded.
func Check(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("check")

	if cmd.Args().Len() == 0 {
		return errors.New("no input source has been specified")
	}
	prepareEnv(cmd, env, log)

	splitter, err := text.NewSplitter()
	if err != nil {
		log.Warn("Sentence statistics are not available", zap.Error(err))
	}

	var total, failed int
	check := func(ctx context.Context, b bookSource) error {
		total++
		doc, err := loadBook(ctx, b, log)
		if err != nil {
			failed++
			return err
		}
		st := doc.Stats()
		counts := splitter.Count(doc.PlainText())
		log.Info("Book is valid",
			zap.String("book", b.name),
			zap.String("title", doc.Title),
			zap.Int("chapters", st.Chapters),
			zap.Int("sections", st.Sections),
			zap.Int("paragraphs", st.Paragraphs),
			zap.Int("characters", st.Characters),
			zap.Int("sentences", counts.Sentences),
			zap.Int("words", counts.Words))
		return nil
	}

	var errs error
	for _, src := range cmd.Args().Slice() {
		src, err := filepath.Abs(src)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		errs = multierr.Append(errs, process(ctx, src, check, log))
	}
	log.Info("Check completed", zap.Int("books", total), zap.Int("failed", failed))
	if errs != nil {
		// combined errors are wrapped so cli does not treat them as exit codes
		return fmt.Errorf("check failed (%d of %d books): %w", failed, total, errs)
	}
	return nil
}

// Format loads books and saves them back in canonical form.
func Format(ctx context.Context, cmd *cli.Command) error {
	return convertBooks(ctx, cmd, outputXML)
}

// Delta converts books into editor delta JSON.
func Delta(ctx context.Context, cmd *cli.Command) error {
	return convertBooks(ctx, cmd, outputDelta)
}

// New creates empty book file with a given title.
func New(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("new")

	title := strings.TrimSpace(cmd.Args().Get(0))
	if len(title) == 0 {
		title = env.DefaultTitle()
	}
	dst, err := destination(cmd.Args().Get(1))
	if err != nil {
		return err
	}
	env.NoDirs, env.Overwrite = true, cmd.Bool("overwrite")

	doc := book.New(title)
	out, err := bookxml.Export(doc, title, env.ExportOptions()...)
	if err != nil {
		return fmt.Errorf("unable to prepare new book: %w", err)
	}

	outputName := buildOutputPath(doc, config.CleanFileName(title)+bookExt, dst, outputXML, env)
	if err := writeOutput(outputName, []byte(out), env, log); err != nil {
		return err
	}
	log.Info("New book created", zap.String("title", title), zap.String("to", outputName))
	return nil
}

func convertBooks(ctx context.Context, cmd *cli.Command, kind outputKind) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named(kind.String())

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}
	dst, err := destination(cmd.Args().Get(1))
	if err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")
	prepareEnv(cmd, env, log)

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("output", kind))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	if err := process(ctx, src, func(ctx context.Context, b bookSource) error {
		return processBook(ctx, b, dst, kind, log)
	}, log); err != nil {
		return fmt.Errorf("unable to process %s: %w", src, err)
	}
	return nil
}

func destination(dst string) (string, error) {
	var err error
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return "", fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	return filepath.Abs(dst)
}

func prepareEnv(cmd *cli.Command, env *state.LocalEnv, log *zap.Logger) {
	env.Lenient = cmd.Bool("lenient")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) == 0 {
		return
	}
	enc, err := ianaindex.IANA.Encoding(cp)
	if err != nil || enc == nil {
		log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
		env.CodePage = nil
		return
	}
	env.CodePage = enc
	n, _ := ianaindex.IANA.Name(enc)
	log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
}

// process determines the input type (directory, archive, or single file) and
// calls fn for every book found. Errors returned by fn are collected and do
// not stop processing.
func process(ctx context.Context, src string, fn bookFunc, log *zap.Logger) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			return processDir(ctx, head, fn, log)
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			// we need to look inside to see if path makes sense
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			return processArchive(ctx, head, filepath.ToSlash(tail), "", fn, log)
		}

		isBook, enc, err := isBookFile(head)
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if isBook && len(tail) == 0 {
			return processFile(ctx, head, filepath.Base(head), enc, fn)
		}
		return fmt.Errorf("input was not recognized as a book (%s)", head)
	}
	return fmt.Errorf("input source was not found (%s)", src)
}

func processFile(ctx context.Context, path, name string, enc srcEncoding, fn bookFunc) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to process file (%s): %w", path, err)
	}
	defer file.Close()

	return fn(ctx, bookSource{r: selectReader(file, enc), enc: enc, name: name, path: path})
}

// processDir walks directory tree finding books and archives and processes
// them in natural order.
func processDir(ctx context.Context, dir string, fn bookFunc, log *zap.Logger) error {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Sort(natural.StringSlice(paths))

	var errs error
	count := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))

		isArchive, err := isArchiveFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			continue
		}
		if isArchive {
			count++
			if err := processArchive(ctx, path, "", filepath.Dir(rel), fn, log); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("unable to process archive (%s): %w", path, err))
			}
			continue
		}

		isBook, enc, err := isBookFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			continue
		}
		if !isBook {
			log.Debug("Skipping file, not recognized as book or archive", zap.String("file", path))
			continue
		}
		count++
		errs = multierr.Append(errs, processFile(ctx, path, rel, enc, fn))
	}
	if count == 0 {
		log.Debug("Nothing to process", zap.String("dir", dir))
	}
	return errs
}

// processArchive walks all files inside archive, finds books under "pathIn"
// and processes them.
func processArchive(ctx context.Context, path, pathIn, pathOut string, fn bookFunc, log *zap.Logger) error {
	cp := state.EnvFromContext(ctx).CodePage

	var errs error
	count := 0
	err := archive.Walk(path, pathIn, func(arc string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		isBook, enc, err := isBookInArchive(f)
		if err != nil {
			log.Warn("Skipping file in archive", zap.String("archive", arc), zap.String("path", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		if !isBook {
			log.Debug("Skipping file, not recognized as book", zap.String("archive", arc), zap.String("file", f.FileHeader.Name))
			return nil
		}
		count++

		r, err := f.Open()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("unable to process file in archive (%s): %w", f.FileHeader.Name, err))
			return nil
		}
		defer r.Close()

		pathInArchive := f.FileHeader.Name
		if cp != nil && f.FileHeader.NonUTF8 {
			// forcing zip file name encoding
			if n, err := cp.NewDecoder().String(pathInArchive); err == nil {
				pathInArchive = n
			} else {
				n, _ = ianaindex.IANA.Name(cp)
				log.Warn("Unable to convert archive name from specified encoding",
					zap.String("charset", n), zap.String("path", pathInArchive), zap.Error(err))
			}
		}
		name := filepath.Join(pathOut, filepath.FromSlash(pathInArchive))
		errs = multierr.Append(errs, fn(ctx, bookSource{r: selectReader(r, enc), enc: enc, name: name}))
		return nil
	})
	if err != nil {
		return multierr.Append(errs, err)
	}
	if count == 0 {
		log.Debug("Nothing to process", zap.String("archive", path))
	}
	return errs
}

// loadBook reads and imports single book. Warnings are logged, structural
// errors and malformed XML make it fail. Source of failed book is put into
// debug report.
func loadBook(ctx context.Context, b bookSource, log *zap.Logger) (*book.Document, error) {
	env := state.EnvFromContext(ctx)

	data, err := io.ReadAll(b.r)
	if err != nil {
		return nil, fmt.Errorf("unable to read book (%s): %w", b.name, err)
	}

	var res *bookxml.Result
	if b.enc == encUnknown {
		res, err = bookxml.ImportBytes(data, env.ImportOptions()...)
	} else {
		// already decoded to UTF-8, declaration is stale
		res, err = bookxml.Import(string(data), env.ImportOptions()...)
	}
	if err != nil {
		storeFailed(env, b, data, log)
		return nil, fmt.Errorf("unable to load book (%s): %w", b.name, err)
	}

	limit := env.DiagnosticsLimit()
	if len(res.Warnings) > 0 {
		log.Warn("Book loaded with warnings",
			zap.String("book", b.name),
			zap.Int("count", len(res.Warnings)),
			zap.String("details", bookxml.Summarize(bookxml.WarningsHeader, res.Warnings, limit)))
	}
	if !res.OK() {
		storeFailed(env, b, data, log)
		return nil, fmt.Errorf("unable to load book (%s): %s", b.name,
			strings.TrimSpace(bookxml.Summarize(bookxml.ErrorsHeader, res.Errors, limit)))
	}
	return res.Document, nil
}

func storeFailed(env *state.LocalEnv, b bookSource, data []byte, log *zap.Logger) {
	name := filepath.ToSlash(filepath.Join("failed", b.name))
	if len(b.path) == 0 {
		env.Rpt.StoreData(name, data)
		return
	}
	if err := env.Rpt.StoreCopy(name, b.path); err != nil {
		log.Warn("Unable to store failed book in report", zap.String("book", b.path), zap.Error(err))
	}
}

// processBook converts single book. "dst" is the destination directory
// where the output file should be written.
func processBook(ctx context.Context, b bookSource, dst string, kind outputKind, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var outputName string

	log.Info("Conversion starting", zap.String("from", b.name))
	defer func(start time.Time) {
		// when multiple books are being processed we do not want to stop
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic (%s): %v", b.name, r)
		} else if rerr == nil {
			log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	doc, err := loadBook(ctx, b, log)
	if err != nil {
		return err
	}

	data, err := render(doc, b.name, kind, env)
	if err != nil {
		return fmt.Errorf("unable to generate output (%s): %w", b.name, err)
	}

	outputName = buildOutputPath(doc, b.name, dst, kind, env)
	return writeOutput(outputName, data, env, log)
}

func render(doc *book.Document, src string, kind outputKind, env *state.LocalEnv) ([]byte, error) {
	switch kind {
	case outputDelta:
		d, err := delta.FromDocument(doc)
		if err != nil {
			return nil, err
		}
		return json.MarshalIndent(d, "", "  ")
	default:
		// book without title gets source file name
		fallback := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		out, err := bookxml.Export(doc, fallback, env.ExportOptions()...)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	}
}

func writeOutput(outputName string, data []byte, env *state.LocalEnv, log *zap.Logger) error {
	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return os.WriteFile(outputName, data, 0644)
}
