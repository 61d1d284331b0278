// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"gbook/book"
	"gbook/bookxml"
	"gbook/config"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// used by format subcommand
	NoDirs    bool
	Overwrite bool
	// command line override for book.lenient_attributes
	Lenient bool
	// forced encoding of non UTF-8 file names in zip archives
	CodePage encoding.Encoding

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

// ContextWithEnv attaches fresh environment to ctx. Configuration, logger
// and report are filled in later, once command line is parsed.
func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{start: time.Now()})
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}

// ImportOptions returns book loading options according to configuration and
// command line.
func (e *LocalEnv) ImportOptions() []bookxml.Option {
	lenient := e.Lenient
	if e.Cfg != nil {
		lenient = lenient || e.Cfg.Book.LenientAttributes
	}
	opts := []bookxml.Option{bookxml.WithLenientAttributes(lenient)}
	if e.Log != nil {
		opts = append(opts, bookxml.WithLogger(e.Log.Named("import")))
	}
	return opts
}

// ExportOptions returns book saving options according to configuration.
func (e *LocalEnv) ExportOptions() []bookxml.ExportOption {
	if e.Cfg == nil {
		return nil
	}
	return []bookxml.ExportOption{bookxml.WithIndent(e.Cfg.Book.Indent)}
}

// DefaultTitle is used when book being saved has no title.
func (e *LocalEnv) DefaultTitle() string {
	if e.Cfg == nil || len(e.Cfg.Book.DefaultTitle) == 0 {
		return book.DefaultTitle
	}
	return e.Cfg.Book.DefaultTitle
}

// DiagnosticsLimit is maximum number of errors or warnings shown for a single
// book.
func (e *LocalEnv) DiagnosticsLimit() int {
	if e.Cfg == nil {
		return bookxml.DefaultDiagnosticsLimit
	}
	return e.Cfg.Book.DiagnosticsLimit
}
