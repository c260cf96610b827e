package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// Execer is satisfied by *sqlx.DB, *sql.DB and transactions.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Step struct {
	Name       string
	Statements []string
}

type StepResult struct {
	Name     string
	Executed int
	Err      error
}

type Report struct {
	Steps []StepResult
}

func (r Report) OK() bool {
	for _, step := range r.Steps {
		if step.Err != nil {
			return false
		}
	}
	return true
}

func (r Report) Failed() []string {
	names := []string{}
	for _, step := range r.Steps {
		if step.Err != nil {
			names = append(names, step.Name)
		}
	}
	return names
}

// Steps returns the ordered DDL plan. Every statement is IF NOT EXISTS.
func Steps() []Step {
	tableStmts := func(names ...string) []string {
		stmts := make([]string, 0, len(names))
		for _, name := range names {
			stmts = append(stmts, MustLookup(name).TableDDL())
		}
		return stmts
	}
	indexes := []string{}
	for _, t := range catalog {
		indexes = append(indexes, t.IndexDDL()...)
	}
	return []Step{
		{Name: "core tables", Statements: tableStmts(Users, IUCNData)},
		{Name: "invasive species table", Statements: tableStmts(Invasive)},
		{Name: "risk assessment tables", Statements: tableStmts(Freshwater, Marine, Terrestrial)},
		{Name: "indexes", Statements: indexes},
	}
}

// Setup runs every step. A failing statement is logged and recorded; the
// remaining statements and steps still run, so re-running after a fix
// converges on the full schema.
func Setup(ctx context.Context, db Execer, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("starting database setup")

	report := Report{}
	var errs []error
	for _, step := range Steps() {
		result := StepResult{Name: step.Name}
		var stepErrs []error
		for _, stmt := range step.Statements {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				stepErrs = append(stepErrs, err)
				continue
			}
			result.Executed++
		}
		if len(stepErrs) > 0 {
			result.Err = fmt.Errorf("%s: %w", step.Name, errors.Join(stepErrs...))
			errs = append(errs, result.Err)
			logger.Error("database setup step failed", "step", step.Name, "error", result.Err)
		} else {
			logger.Info("database setup step complete", "step", step.Name, "statements", result.Executed)
		}
		report.Steps = append(report.Steps, result)
	}

	if len(errs) > 0 {
		return report, errors.Join(errs...)
	}
	logger.Info("database setup completed")
	return report, nil
}
