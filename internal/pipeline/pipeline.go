// Package pipeline implements the acquisition-and-reconciliation run for one
// commodity family: paginated fetch, normalization, month-rollover
// carry-forward, append load, and the read-dedup-rebuild reconciliation pass.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"agrimarket/internal/client/kamis"
	"agrimarket/internal/config"
	"agrimarket/internal/jobs"
	"agrimarket/internal/models"
	"agrimarket/internal/store"
)

// FamilyConfig parametrizes the shared pipeline for one commodity family.
// The two families differ only in commodity ids, the grade/sex columns and
// the rollover idempotency guard.
type FamilyConfig struct {
	Name          string
	Dataset       string
	Commodities   []int
	GradeSex      bool
	RolloverGuard bool
}

func FamilyFromConfig(name string, cfg config.PipelineConfig) FamilyConfig {
	dataset := cfg.Dataset
	if dataset == "" {
		dataset = name
	}
	return FamilyConfig{
		Name:          name,
		Dataset:       dataset,
		Commodities:   cfg.Commodities,
		GradeSex:      cfg.GradeSex,
		RolloverGuard: cfg.RolloverGuard,
	}
}

// Source produces one page of raw market rows per call.
type Source interface {
	FetchPage(ctx context.Context, commodity, offset int) (kamis.Table, error)
	PerPage() int
}

type Pipeline struct {
	Family       FamilyConfig
	Source       Source
	Store        store.PeriodStore
	Logger       *zap.Logger
	MaxPages     int
	PollInterval time.Duration
	LoadTimeout  time.Duration

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

type Result struct {
	Family         string          `json:"family"`
	PeriodTable    string          `json:"period_table"`
	RowsFetched    int             `json:"rows_fetched"`
	RowsCarried    int             `json:"rows_carried"`
	RowsLoaded     int             `json:"rows_loaded"`
	RowsReconciled int             `json:"rows_reconciled"`
	Rollover       RolloverOutcome `json:"rollover"`
	Empty          bool            `json:"empty"`
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Run executes one straight-through batch. An empty fetched batch is a clean
// success that touches nothing in the store; failures on the mandatory
// append/reconcile path terminate the run.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	now := p.now()
	table := store.TableName(now)
	result := Result{Family: p.Family.Name, PeriodTable: table, Rollover: RolloverNotApplicable}
	started := time.Now().UTC()

	raw := p.fetchAll(ctx)
	batch, err := NormalizeRows(raw, p.Family.GradeSex)
	if err != nil {
		err = fmt.Errorf("normalize: %w", err)
		p.recordRun(ctx, started, result, models.RunStatusFailed, err)
		return result, err
	}
	result.RowsFetched = len(batch)
	p.Logger.Info("collected rows",
		zap.String("family", p.Family.Name),
		zap.Int("rows", len(batch)))

	if len(batch) == 0 {
		result.Empty = true
		p.Logger.Warn("no data collected, skipping load", zap.String("family", p.Family.Name))
		p.recordRun(ctx, started, result, models.RunStatusEmpty, nil)
		return result, nil
	}

	rollover := p.mergeRollover(ctx, now, &batch)
	result.Rollover = rollover.Outcome
	result.RowsCarried = rollover.Carried

	job := p.Store.Append(ctx, p.Family.Dataset, table, p.Family.GradeSex, batch)
	if err := jobs.Wait(ctx, job, p.PollInterval, p.LoadTimeout); err != nil {
		err = fmt.Errorf("append %s.%s: %w", p.Family.Dataset, table, err)
		p.recordRun(ctx, started, result, models.RunStatusFailed, err)
		return result, err
	}
	result.RowsLoaded = len(batch)

	reconciled, err := p.reconcile(ctx, table)
	if err != nil {
		err = fmt.Errorf("reconcile %s.%s: %w", p.Family.Dataset, table, err)
		p.recordRun(ctx, started, result, models.RunStatusFailed, err)
		return result, err
	}
	result.RowsReconciled = reconciled

	p.recordRun(ctx, started, result, models.RunStatusSucceeded, nil)
	p.Logger.Info("run complete",
		zap.String("family", p.Family.Name),
		zap.String("table", table),
		zap.Int("loaded", result.RowsLoaded),
		zap.Int("reconciled", result.RowsReconciled),
		zap.String("rollover", string(result.Rollover)))
	return result, nil
}

func (p *Pipeline) recordRun(ctx context.Context, started time.Time, result Result, status string, runErr error) {
	finished := time.Now().UTC()
	run := &models.IngestRun{
		Family:         p.Family.Name,
		PeriodTable:    result.PeriodTable,
		Status:         status,
		Rollover:       string(result.Rollover),
		RowsFetched:    result.RowsFetched,
		RowsCarried:    result.RowsCarried,
		RowsLoaded:     result.RowsLoaded,
		RowsReconciled: result.RowsReconciled,
		StartedAt:      started,
		FinishedAt:     &finished,
	}
	if runErr != nil {
		msg := runErr.Error()
		run.LastError = &msg
	}
	if payload, err := json.Marshal(result); err == nil {
		run.StatsJSON = datatypes.JSON(payload)
	}
	if err := p.Store.RecordRun(ctx, run); err != nil {
		p.Logger.Warn("record run failed", zap.String("family", p.Family.Name), zap.Error(err))
	}
}
