// Package pipeline orchestrates the import run: parse, merge, resolve,
// fetch, write, and hand off to the downstream importer.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/shopfront/catalogimport/category"
	"github.com/shopfront/catalogimport/config"
	"github.com/shopfront/catalogimport/images"
	"github.com/shopfront/catalogimport/importer"
	"github.com/shopfront/catalogimport/merge"
	"github.com/shopfront/catalogimport/models"
	"github.com/shopfront/catalogimport/output"
	"github.com/shopfront/catalogimport/tabular"
)

// Deps are the constructor-injected collaborators of one run; nothing in
// the pipeline reaches for process-wide state.
type Deps struct {
	Index    *category.Index  // nil disables spec resolution
	Catalogs []images.Catalog // consulted in order
	Fetcher  *images.Fetcher  // nil disables downloading
	Writer   *output.Writer
	Target   importer.Target // nil disables the downstream import
}

// Pipeline drives one import run end to end.
type Pipeline struct {
	cfg  *config.Config
	deps Deps
}

// Outcome collects everything an operator needs after a run.
type Outcome struct {
	Report       *models.RunReport
	OutputPath   string
	BackupPath   string
	ReportPath   string
	SnapshotPath string
	AppliedPath  string
	DryRun       *importer.Report
	Applied      *importer.Applied
}

// New builds a pipeline over cfg and its injected collaborators.
func New(cfg *config.Config, deps Deps) *Pipeline {
	if deps.Writer == nil {
		deps.Writer = output.NewWriter()
	}
	return &Pipeline{cfg: cfg, deps: deps}
}

// Run executes the whole pipeline. Row-level defects and resolution
// misses are aggregated into the report; only precondition failures
// (missing files, missing key column) abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Outcome, error) {
	report := &models.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	outcome := &Outcome{Report: report}

	merger := merge.NewMerger(p.cfg.KeyColumn)
	for _, path := range p.cfg.InputFiles {
		table, err := tabular.Load(path)
		if err != nil {
			return nil, err
		}
		if err := merger.MergeTable(table); err != nil {
			return nil, fmt.Errorf("merge %s: %w", path, err)
		}
		slog.Info("merged input table",
			slog.String("path", path),
			slog.Int("rows", len(table.Rows)),
		)
	}

	records := merger.Records()
	report.Counts.Processed = len(records)
	report.Counts.Skipped = merger.Skipped()

	p.resolveSpecs(records, report)
	tasks := p.resolveImages(records, report)

	if !p.cfg.NoDownload && p.deps.Fetcher != nil && len(tasks) > 0 {
		p.fetchImages(ctx, records, tasks, report)
	}

	table := BuildEnrichedTable(records)
	backup, err := p.deps.Writer.Write([]byte(SerializeTable(table)), p.cfg.OutputFile)
	if err != nil {
		return nil, fmt.Errorf("write enriched table: %w", err)
	}
	outcome.OutputPath = p.cfg.OutputFile
	outcome.BackupPath = backup

	if p.deps.Target != nil {
		if err := p.runImport(ctx, table, outcome); err != nil {
			return nil, err
		}
	}

	report.Counts.Failed = len(report.Failures)
	report.FinishedAt = time.Now()

	reportPath, err := p.writeArtifact(report, "report")
	if err != nil {
		return nil, err
	}
	outcome.ReportPath = reportPath
	return outcome, nil
}

// resolveSpecs matches every category path of every record against the
// specification index. Broad matches are taken but surfaced as
// ambiguous; total misses leave the field empty and go to review.
func (p *Pipeline) resolveSpecs(records []*models.CanonicalProductRecord, report *models.RunReport) {
	if p.deps.Index == nil {
		return
	}

	for _, rec := range records {
		matched := false
		for _, rawPath := range rec.Categories.Values() {
			match := p.deps.Index.Resolve(rawPath)
			if match == nil {
				continue
			}
			matched = true
			for _, spec := range match.Specs {
				rec.CategorySpecs.Add(spec)
			}
			if match.Broad {
				report.Ambiguous = append(report.Ambiguous, models.AmbiguousMatch{
					Key:        rec.Key,
					RawPath:    rawPath,
					MatchedTop: match.Top,
				})
			}
		}
		if matched {
			report.Counts.Resolved++
		} else if rec.Categories.Len() > 0 {
			report.Unresolved = append(report.Unresolved, models.TaskFailure{
				Key:    rec.Key,
				Name:   rec.Name(),
				Reason: "no specification match",
			})
		}
	}
}

// resolveImages picks a candidate URL for each record lacking one and
// builds the download task list. Non-web candidates are recorded as
// unresolved and never attempted.
func (p *Pipeline) resolveImages(records []*models.CanonicalProductRecord, report *models.RunReport) []models.ImageTask {
	var tasks []models.ImageTask
	for _, rec := range records {
		if rec.ImageCandidateURLs.Len() == 0 {
			for _, catalog := range p.deps.Catalogs {
				if url, ok := catalog.Lookup(rec.Key, rec.Name()); ok {
					rec.ImageCandidateURLs.Add(url)
					break
				}
			}
		}

		candidate := rec.ImageCandidateURLs.First()
		if candidate == "" {
			if len(p.deps.Catalogs) > 0 {
				report.Unresolved = append(report.Unresolved, models.TaskFailure{
					Key:    rec.Key,
					Name:   rec.Name(),
					Reason: "no image candidate",
				})
			}
			continue
		}
		if !images.WebScheme(candidate) {
			report.Unresolved = append(report.Unresolved, models.TaskFailure{
				Key:    rec.Key,
				Name:   rec.Name(),
				URL:    candidate,
				Reason: "candidate is not an http(s) URL",
			})
			continue
		}

		tasks = append(tasks, models.ImageTask{
			Key:               rec.Key,
			Name:              rec.Name(),
			CandidateURL:      candidate,
			DestinationFolder: images.TaskFolder(p.cfg.ImageDir, rec.Key, rec.Name()),
		})
	}
	return tasks
}

func (p *Pipeline) fetchImages(ctx context.Context, records []*models.CanonicalProductRecord, tasks []models.ImageTask, report *models.RunReport) {
	byKey := make(map[models.ProductKey]*models.CanonicalProductRecord, len(records))
	for _, rec := range records {
		byKey[rec.Key] = rec
	}

	for _, result := range p.deps.Fetcher.Run(ctx, tasks) {
		rec := byKey[result.Task.Key]
		if result.Err != nil {
			report.Failures = append(report.Failures, models.TaskFailure{
				Key:    result.Task.Key,
				Name:   result.Task.Name,
				URL:    result.Task.CandidateURL,
				Reason: images.ReasonLabel(result.Err),
			})
			continue
		}
		if result.Reused {
			report.Counts.Reused++
		} else {
			report.Counts.Downloaded++
		}
		if rec != nil {
			rec.ResolvedImagePath = p.relativeImagePath(result.LocalPath)
		}
	}
}

func (p *Pipeline) relativeImagePath(localPath string) string {
	rel, err := filepath.Rel(p.cfg.ImageDir, localPath)
	if err != nil {
		return localPath
	}
	return filepath.ToSlash(rel)
}

func (p *Pipeline) runImport(ctx context.Context, table *tabular.Table, outcome *Outcome) error {
	if !p.cfg.Apply {
		dryRun, err := p.deps.Target.DryRun(ctx, table)
		if err != nil {
			return fmt.Errorf("dry run: %w", err)
		}
		outcome.DryRun = dryRun
		slog.Info("dry run complete",
			slog.Int("inserts", len(dryRun.Inserts)),
			slog.Int("updates", len(dryRun.Updates)),
			slog.Int("problems", len(dryRun.Problems)),
		)
		return nil
	}

	applied, err := p.deps.Target.Apply(ctx, table)
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	outcome.Applied = applied

	snapshotPath, err := p.writeArtifact(applied.Snapshot, "snapshot")
	if err != nil {
		return err
	}
	outcome.SnapshotPath = snapshotPath

	appliedPath, err := p.writeArtifact(applied, "applied")
	if err != nil {
		return err
	}
	outcome.AppliedPath = appliedPath

	slog.Info("apply complete",
		slog.Int("rows", len(applied.Keys)),
		slog.String("snapshot", snapshotPath),
	)
	return nil
}

func (p *Pipeline) writeArtifact(payload any, kind string) (string, error) {
	dir := p.cfg.ReportDir
	if dir == "" {
		dir = filepath.Dir(p.cfg.OutputFile)
	}
	name := fmt.Sprintf("%s-%s.json", kind, time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, name)
	if err := output.WriteJSON(p.deps.Writer, payload, path); err != nil {
		return "", fmt.Errorf("write %s artifact: %w", kind, err)
	}
	return path, nil
}
