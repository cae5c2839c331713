// Package pipeline runs one sync: fetch the bundle, build the auxiliary
// lookups, flatten the bundle into the lookup table and persist it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phac-pdir/nvc-sync/config"
	"github.com/phac-pdir/nvc-sync/interfaces"
	"github.com/phac-pdir/nvc-sync/logging"
	"github.com/phac-pdir/nvc-sync/metrics"
	"github.com/phac-pdir/nvc-sync/nvcparser"
	"github.com/phac-pdir/nvc-sync/nvcparser/entities"
	"github.com/phac-pdir/nvc-sync/storage"
	"github.com/phac-pdir/nvc-sync/validation"
)

// Result describes a completed run.
type Result struct {
	RunID           string
	Version         string
	PreviousVersion string
	Changed         bool
	Table           entities.LookupTable // nil when nothing changed
	Report          *interfaces.TableQualityReport
	Duration        time.Duration
}

// Runner executes sync runs. It holds no per-run state and may be reused.
type Runner struct {
	fetcher    interfaces.Fetcher
	writer     *storage.Writer
	tables     interfaces.TableStore
	builder    *nvcparser.LookupBuilder
	flattener  *nvcparser.Flattener
	validator  interfaces.TableValidator
	auxLookups []string
}

// NewRunner assembles a runner from its parts.
func NewRunner(
	fetcher interfaces.Fetcher,
	writer *storage.Writer,
	tables interfaces.TableStore,
	builder *nvcparser.LookupBuilder,
	flattener *nvcparser.Flattener,
	validator interfaces.TableValidator,
	auxLookups []string,
) *Runner {
	return &Runner{
		fetcher:    fetcher,
		writer:     writer,
		tables:     tables,
		builder:    builder,
		flattener:  flattener,
		validator:  validator,
		auxLookups: auxLookups,
	}
}

// NewRunnerFromConfig wires the HTTP fetcher and the file stores described
// by cfg.
func NewRunnerFromConfig(cfg *config.Config) (*Runner, error) {
	fetcher, err := nvcparser.NewFetcher(cfg.APIURL, cfg.AppDesc, cfg.HTTPTimeout, cfg.FetchRetries)
	if err != nil {
		return nil, err
	}

	store := storage.NewFileStore(cfg.OutputDir, cfg.TableDir)
	versions := storage.NewFileVersionStore(store, cfg.VersionFile)

	return NewRunner(
		fetcher,
		storage.NewWriter(versions, store, cfg.GateOnVersion),
		store,
		nvcparser.NewLookupBuilder(store, cfg.TableDir, cfg.Languages),
		nvcparser.NewFlattener(cfg.Languages, cfg.UseDesignations),
		validation.NewTableValidator(),
		cfg.AuxLookups,
	), nil
}

// Tables returns the store the table is persisted to.
func (r *Runner) Tables() interfaces.TableStore {
	return r.tables
}

// Run performs one sync. With version gating enabled and an unchanged
// bundle version nothing is written and Result.Changed is false.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	logger := logging.Logger().With("run_id", result.RunID)
	start := time.Now()

	err := r.run(ctx, logger, result)
	result.Duration = time.Since(start)

	switch {
	case err != nil:
		metrics.SyncRunsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, err
	case result.Changed:
		metrics.SyncRunsTotal.WithLabelValues(metrics.OutcomeChanged).Inc()
		metrics.TableEntries.Set(float64(len(result.Table)))
	default:
		metrics.SyncRunsTotal.WithLabelValues(metrics.OutcomeUnchanged).Inc()
	}
	metrics.LastSuccessTimestamp.SetToCurrentTime()

	return result, nil
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, result *Result) error {
	fetchStart := time.Now()
	bundle, err := r.fetcher.Fetch(ctx)
	metrics.FetchDuration.Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		return fmt.Errorf("failed to fetch bundle: %w", err)
	}

	result.Version = bundle.VersionID()
	if result.Version == "" {
		logger.Warn("Bundle has no version identifier")
	}

	check, err := r.writer.Check(result.Version)
	if err != nil {
		return err
	}
	result.PreviousVersion = check.Previous

	if !check.Changed {
		logger.Info("No change in bundle version, nothing written", "version", result.Version)
		return nil
	}

	lookups, err := r.builder.Build(bundle, r.auxLookups)
	if err != nil {
		return fmt.Errorf("failed to build auxiliary lookups: %w", err)
	}

	table := r.flattener.Flatten(bundle, lookups)
	report := r.validator.ReportTableQuality(bundle, table, lookups.Disease, lookups.MAH)
	logReport(logger, report)

	if err := r.writer.Persist(entities.TableDocument{Version: result.Version, Table: table}); err != nil {
		return err
	}

	result.Changed = true
	result.Table = table
	result.Report = report

	logger.Info("Vaccine table written",
		"version", result.Version,
		"previous_version", result.PreviousVersion,
		"records", len(table),
	)
	return nil
}

// logReport logs quality issues as warnings. They never fail the run.
func logReport(logger *slog.Logger, report *interfaces.TableQualityReport) {
	if report == nil {
		return
	}

	if len(report.DuplicateCodes) > 0 {
		logger.Warn("Duplicate vaccine codes detected, last definition kept",
			"total", len(report.DuplicateCodes),
			"codes", report.DuplicateCodes,
		)
	}

	if len(report.UnresolvedDiseaseCodes) > 0 {
		logger.Warn("Disease codes missing from the disease lookup",
			"total", len(report.UnresolvedDiseaseCodes),
			"codes", report.UnresolvedDiseaseCodes,
		)
	}

	if len(report.UnresolvedMAHCodes) > 0 {
		logger.Warn("MAH codes missing from the MAH lookup",
			"total", len(report.UnresolvedMAHCodes),
			"codes", report.UnresolvedMAHCodes,
		)
	}

	if len(report.SkippedResources) > 0 {
		logger.Debug("Bundle entries ignored", "ids", report.SkippedResources)
	}

	logger.Debug("Table quality",
		"records_with_mah", report.RecordsWithMAH,
		"records_without_disease", report.RecordsWithoutDisease,
	)
}
