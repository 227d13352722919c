package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Reality2byte/nanoc/internal/config"
	"github.com/Reality2byte/nanoc/internal/datasource"
	"github.com/Reality2byte/nanoc/internal/engine"
	"github.com/Reality2byte/nanoc/internal/output"
	"github.com/Reality2byte/nanoc/internal/rules"
	"github.com/Reality2byte/nanoc/internal/site"
	"github.com/Reality2byte/nanoc/internal/store"
)

// Error codes for CLI responses.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeConfig      = "E002"
	ErrCodeRules       = "E003"
	ErrCodeSource      = "E004"
	ErrCodeStore       = "E005"
	ErrCodeCompilation = "E006"
	ErrCodeRuntime     = "E007"
)

// project is a site on disk: its configuration, its rules and its
// data source.
type project struct {
	cfg    *config.Config
	source *datasource.Filesystem
	logger *slog.Logger
}

func openProject(root string, logger *slog.Logger) (*project, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &CommandError{Code: ErrCodeConfig, Message: fmt.Sprintf("site root not found: %s", root), Err: err}
	}
	if !info.IsDir() {
		return nil, &CommandError{Code: ErrCodeConfig, Message: fmt.Sprintf("not a directory: %s", root)}
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, &CommandError{Code: ErrCodeConfig, Message: "invalid configuration", Err: err}
	}
	return &project{
		cfg: cfg,
		source: &datasource.Filesystem{
			ContentDir: cfg.Path(cfg.ContentDir),
			LayoutsDir: cfg.Path(cfg.LayoutsDir),
			Logger:     logger,
		},
		logger: logger,
	}, nil
}

// input loads the site and applies the rules to it. The rules file is
// read on every call so watch picks up edits to it.
func (p *project) input(ctx context.Context, focus []string) (engine.Input, error) {
	r, err := rules.Load(p.cfg.Path(p.cfg.RulesFile))
	if err != nil {
		return engine.Input{}, &CommandError{Code: ErrCodeRules, Message: "invalid rules", Err: err}
	}
	s, err := datasource.Load(ctx, p.source, p.cfg.Attributes)
	if err != nil {
		return engine.Input{}, &CommandError{Code: ErrCodeSource, Message: "loading site failed", Err: err}
	}
	seqs, err := r.Apply(s)
	if err != nil {
		return engine.Input{}, &CommandError{Code: ErrCodeRules, Message: "applying rules failed", Err: err}
	}

	in := engine.Input{Site: s, ActionSequences: seqs}
	for _, f := range focus {
		pat, err := site.ParsePattern(f)
		if err != nil {
			return engine.Input{}, &CommandError{Code: ErrCodeGeneric, Message: fmt.Sprintf("invalid focus pattern %q", f), Err: err}
		}
		in.Focus = append(in.Focus, pat)
	}
	return in, nil
}

func (p *project) openStore() (*store.Store, error) {
	path := p.cfg.Path(p.cfg.StorePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &CommandError{Code: ErrCodeStore, Message: "creating store directory failed", Err: err}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, &CommandError{Code: ErrCodeStore, Message: "opening store failed", Err: err}
	}
	p.logger.Debug("store opened", "path", path)
	return st, nil
}

func (p *project) compiler(st *store.Store, opts ...engine.Option) (*engine.Compiler, error) {
	dest, err := p.cfg.Destination()
	if err != nil {
		return nil, &CommandError{Code: ErrCodeConfig, Message: "output destination unavailable", Err: err}
	}
	base := []engine.Option{
		engine.WithLogger(p.logger),
		engine.WithChecksumAlgorithm(p.cfg.Algorithm()),
		engine.WithMaxSuspensions(p.cfg.MaxSuspensions),
		engine.WithCacheMemoryEntries(p.cfg.Cache.MemoryEntries),
	}
	return engine.New(st, output.RepWriter{Dest: dest}, append(base, opts...)...), nil
}

// CommandError is a failure before or around compilation: bad flags,
// configuration, rules or store.
type CommandError struct {
	Code    string
	Message string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CommandError) Unwrap() error { return e.Err }
