package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/lazymigrate/lazymigrate/internal/domain"
	"github.com/lazymigrate/lazymigrate/internal/domain/manifest"
	"github.com/lazymigrate/lazymigrate/internal/domain/pomxml"
	"github.com/lazymigrate/lazymigrate/internal/domain/replace"
)

// RuleProject tags run-level records about the project as a whole.
const RuleProject = "project"

// MigrateService orchestrates a migration run:
// validate rules → scan → update dependencies → transform and write → build → summarize.
type MigrateService struct {
	scanner      domain.ProjectScanner
	configLoader domain.ConfigLoader
	mutators     domain.MutatorFactory
	tool         domain.BuildTool
	git          domain.GitInfo
	log          *slog.Logger
}

// NewMigrateService wires the engine. tool and git may be nil; a nil logger
// discards output.
func NewMigrateService(
	scanner domain.ProjectScanner,
	configLoader domain.ConfigLoader,
	mutators domain.MutatorFactory,
	tool domain.BuildTool,
	git domain.GitInfo,
	logger *slog.Logger,
) *MigrateService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MigrateService{
		scanner:      scanner,
		configLoader: configLoader,
		mutators:     mutators,
		tool:         tool,
		git:          git,
		log:          logger,
	}
}

// Run migrates the project at root. The returned summary is never nil.
// A fatal failure (invalid rules, unreadable root) is returned as the error
// and recorded in the summary before any file or build step runs. Per-file failures
// only show up as Error records. On cancellation Run returns the partial
// summary together with ctx.Err().
func (s *MigrateService) Run(ctx context.Context, rs domain.RuleSet, root string, opts domain.RunOptions) (*domain.Summary, error) {
	cs := domain.NewChangeSet(root, opts.DryRun)
	fatal := func(err error) (*domain.Summary, error) {
		cs.SetFatal(err)
		sum := cs.Snapshot()
		s.log.Error("migration aborted", "root", root, "error", err)
		return &sum, err
	}

	if err := rs.Validate(); err != nil {
		return fatal(err)
	}
	opts, err := s.resolveOptions(root, opts)
	if err != nil {
		return fatal(err)
	}
	transformers, err := newTransformers(rs)
	if err != nil {
		return fatal(err)
	}

	s.preflight(cs, root)

	scanOpts := opts.ScanOptions()
	scanOpts.OnError = func(rel string, err error) {
		s.log.Warn("skipping unreadable directory", "dir", rel, "error", err)
		cs.Append(domain.Failure(rel, RuleProject, fmt.Errorf("reading directory: %w", err)))
	}
	files, err := s.scanner.Scan(root, scanOpts)
	if err != nil {
		return fatal(fmt.Errorf("scanning project: %w", err))
	}
	cs.SetScanned(files)
	checkProjectLayout(cs, files)
	s.log.Info("scanned project", "root", root, "files", len(files), "dry_run", opts.DryRun)

	// The listing stays valid: the dependency update only rewrites pom.xml.
	if opts.UpdateDependencies {
		s.updateDependencies(ctx, cs, root, opts)
	}

	mut := s.mutators(opts.Backup, opts.DryRun)
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for _, f := range files {
		if !f.Processable() {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		tr := transformers[f.Category]
		g.Go(func() error {
			s.processFile(ctx, cs, mut, tr, f)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		sum := cs.Snapshot()
		s.log.Warn("migration cancelled", "root", root, "changed", sum.Changed)
		return &sum, err
	}

	if opts.Build {
		s.runStep(ctx, cs, root, domain.StepBuild, opts)
	}

	sum := cs.Snapshot()
	s.log.Info("migration finished",
		"root", root,
		"scanned", sum.Scanned,
		"changed", sum.Changed,
		"warnings", sum.Warnings,
		"errors", sum.Errors,
	)
	return &sum, nil
}

// Scan lists the project files the way Run would see them. Unreadable
// directories are logged and skipped.
func (s *MigrateService) Scan(root string, opts domain.RunOptions) ([]domain.ScannedFile, error) {
	opts, err := s.resolveOptions(root, opts)
	if err != nil {
		return nil, err
	}
	scanOpts := opts.ScanOptions()
	scanOpts.OnError = func(rel string, err error) {
		s.log.Warn("skipping unreadable directory", "dir", rel, "error", err)
	}
	files, err := s.scanner.Scan(root, scanOpts)
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	return files, nil
}

func (s *MigrateService) resolveOptions(root string, opts domain.RunOptions) (domain.RunOptions, error) {
	if s.configLoader == nil {
		return opts, nil
	}
	cfg, err := s.configLoader.Load(root)
	if err != nil {
		return opts, fmt.Errorf("loading config: %w", err)
	}
	return cfg.ApplyTo(opts), nil
}

func newTransformers(rs domain.RuleSet) (map[domain.Category]domain.Transformer, error) {
	mf, err := manifest.New(rs)
	if err != nil {
		return nil, &domain.ConfigError{Kind: domain.Malformed, Field: "artifactJsonRules", Err: err}
	}
	text, err := replace.New(rs.TextReplacements)
	if err != nil {
		return nil, &domain.ConfigError{Kind: domain.Malformed, Field: "textReplacements", Err: err}
	}
	return map[domain.Category]domain.Transformer{
		domain.CategoryPomXML:           pomxml.New(rs),
		domain.CategoryArtifactManifest: mf,
		domain.CategorySourceText:       text,
	}, nil
}

// processFile reads, transforms and writes one file. Everything it learns
// goes into cs as a single batch.
func (s *MigrateService) processFile(ctx context.Context, cs *domain.ChangeSet, mut domain.FileMutator, tr domain.Transformer, f domain.ScannedFile) {
	content, err := os.ReadFile(f.AbsPath)
	if err != nil {
		cs.Append(domain.Failure(f.RelPath, "", fmt.Errorf("reading file: %w", err)))
		return
	}

	out, records, err := tr.Transform(f, content)
	if err != nil {
		s.log.Warn("transform failed", "file", f.RelPath, "error", err)
		cs.Append(append(records, domain.Failure(f.RelPath, "", err))...)
		return
	}
	if bytes.Equal(out, content) {
		cs.Append(records...)
		return
	}

	backup, err := mut.Apply(ctx, f.AbsPath, out)
	if backup != nil {
		cs.AddBackup(domain.BackupRecord{
			OriginalPath: f.RelPath,
			BackupPath:   f.RelPath + domain.BackupSuffix,
		})
	}
	switch {
	case err == nil:
		cs.MarkChanged(f.RelPath)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The file was left untouched; its edits did not happen.
		return
	default:
		s.log.Warn("write failed", "file", f.RelPath, "error", err)
		records = append(records, domain.Failure(f.RelPath, "", err))
	}
	cs.Append(records...)
}

func (s *MigrateService) preflight(cs *domain.ChangeSet, root string) {
	if s.git == nil || !s.git.IsGitRepo(root) {
		return
	}
	state, err := s.git.State(root)
	if err != nil {
		s.log.Warn("reading git state", "root", root, "error", err)
		return
	}
	cs.SetGit(state)
	if state.Dirty {
		s.log.Warn("work tree has uncommitted changes", "root", root)
	}
}

func (s *MigrateService) updateDependencies(ctx context.Context, cs *domain.ChangeSet, root string, opts domain.RunOptions) {
	if !s.runStep(ctx, cs, root, domain.StepUpdateDependencies, opts) {
		return
	}
	leftover := filepath.Join(root, domain.VersionsBackupFile)
	if err := os.Remove(leftover); err != nil && !errors.Is(err, os.ErrNotExist) {
		cs.Append(domain.Warning("", ruleTool(domain.StepUpdateDependencies),
			fmt.Sprintf("could not remove %s: %v", domain.VersionsBackupFile, err)))
	}
}

// runStep runs a build-tool step and folds its outcome into cs. Steps are
// skipped in dry runs. It reports whether the step ran and succeeded.
func (s *MigrateService) runStep(ctx context.Context, cs *domain.ChangeSet, root, step string, opts domain.RunOptions) bool {
	if opts.DryRun {
		s.log.Info("dry run, skipping build tool step", "step", step)
		return false
	}
	if s.tool == nil {
		cs.Append(domain.Failure("", ruleTool(step), errors.New("no build tool configured")))
		return false
	}

	tctx, cancel := context.WithTimeout(ctx, opts.EffectiveToolTimeout())
	defer cancel()

	args := domain.StepArgs(step)
	res, err := s.tool.Run(tctx, root, args)
	cs.AddTool(domain.ToolRun{
		Step:     step,
		Args:     args,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	})
	if err != nil {
		s.log.Warn("build tool step failed", "step", step, "error", err)
		cs.Append(domain.Failure("", ruleTool(step), err))
		return false
	}
	return true
}

func ruleTool(step string) string { return "tool:" + step }

// checkProjectLayout warns when the root lacks the files of a Mule project.
func checkProjectLayout(cs *domain.ChangeSet, files []domain.ScannedFile) {
	var hasPom, hasManifest bool
	for _, f := range files {
		switch f.RelPath {
		case domain.PomFileName:
			hasPom = true
		case domain.ManifestFileName:
			hasManifest = true
		}
	}
	if !hasPom {
		cs.Append(domain.Warning("", RuleProject, "no pom.xml at the project root"))
	}
	if !hasManifest {
		cs.Append(domain.Warning("", RuleProject, "no mule-artifact.json at the project root"))
	}
}
