// Package importer loads CSV exports and bundled sample data into the
// dashboard tables. Imports append; running a pipeline twice duplicates rows.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"biodivscope-backend-go/internal/schema"
)

type Status string

const (
	StatusImported Status = "imported"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

type Job struct {
	Table  string
	Source Source
}

type StepResult struct {
	Source string
	Table  string
	Status Status
	Rows   int
	Err    error
}

type Result struct {
	Steps   []StepResult
	Counts  map[string]int64
	Success bool
}

type Pipeline struct {
	Store  Store
	Jobs   []Job
	Logger *slog.Logger
}

// DefaultJobs is the IUCN export followed by the bundled sample datasets.
// extraCSV, when set, is searched before the default IUCN locations.
func DefaultJobs(extraCSV ...string) []Job {
	candidates := append([]string{}, extraCSV...)
	candidates = append(candidates, DefaultIUCNCandidates...)
	return []Job{
		{Table: schema.IUCNData, Source: CSVSource{Label: "IUCN csv", Candidates: candidates}},
		{Table: schema.Invasive, Source: StaticSource{Label: "invasive species sample", Frame: SampleInvasiveSpecies()}},
		{Table: schema.Freshwater, Source: StaticSource{Label: "freshwater risk sample", Frame: SampleFreshwaterRisk()}},
		{Table: schema.Marine, Source: StaticSource{Label: "marine hci sample", Frame: SampleMarineHCI()}},
		{Table: schema.Terrestrial, Source: StaticSource{Label: "terrestrial risk sample", Frame: SampleTerrestrialRisk()}},
	}
}

func (p Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Run attempts every job; a failed job does not stop the others.
func (p Pipeline) Run(ctx context.Context) Result {
	log := p.logger()
	log.Info("starting data import", "jobs", len(p.Jobs))

	result := Result{Success: true}
	for _, job := range p.Jobs {
		step := p.runJob(ctx, job)
		switch step.Status {
		case StatusSkipped:
			log.Warn("import skipped", "source", step.Source, "table", step.Table, "reason", step.Err)
		case StatusFailed:
			result.Success = false
			log.Error("import failed", "source", step.Source, "table", step.Table, "error", step.Err)
		default:
			log.Info("import complete", "source", step.Source, "table", step.Table, "rows", step.Rows)
		}
		result.Steps = append(result.Steps, step)
	}

	result.Counts = p.Verify(ctx)

	if result.Success {
		log.Info("data import completed")
	} else {
		log.Error("some data imports failed")
	}
	return result
}

func (p Pipeline) runJob(ctx context.Context, job Job) StepResult {
	step := StepResult{Source: job.Source.Name(), Table: job.Table}
	table, ok := schema.Lookup(job.Table)
	if !ok {
		step.Status = StatusFailed
		step.Err = fmt.Errorf("unknown table %q", job.Table)
		return step
	}
	frame, err := job.Source.Load(ctx)
	if err != nil {
		step.Err = err
		step.Status = StatusFailed
		if errors.Is(err, ErrSourceMissing) {
			step.Status = StatusSkipped
		}
		return step
	}
	batch, err := Project(frame, table)
	if err != nil {
		step.Status = StatusFailed
		step.Err = err
		return step
	}
	if len(batch.Columns) == 0 {
		step.Status = StatusFailed
		step.Err = fmt.Errorf("no columns of %s found in source", table.Name)
		return step
	}
	n, err := p.Store.AppendRows(ctx, batch.Table, batch.Columns, batch.Rows)
	if err != nil {
		step.Status = StatusFailed
		step.Err = err
		return step
	}
	step.Status = StatusImported
	step.Rows = n
	return step
}

// Verify logs the row count of every catalog table. Count failures are
// warnings and are left out of the returned map.
func (p Pipeline) Verify(ctx context.Context) map[string]int64 {
	log := p.logger()
	counts := map[string]int64{}
	for _, table := range schema.Tables() {
		n, err := p.Store.CountRows(ctx, table.Name)
		if err != nil {
			log.Warn("could not count table", "table", table.Name, "error", err)
			continue
		}
		counts[table.Name] = n
		log.Info("table row count", "table", table.Name, "rows", n)
	}
	return counts
}
