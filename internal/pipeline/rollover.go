package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"agrimarket/internal/models"
	"agrimarket/internal/store"
)

// RolloverOutcome is the typed result of the month-start carry-forward
// decision. A failed rollover is recorded and logged but does not stop the
// run: the fresh batch still gets appended and reconciled.
type RolloverOutcome string

const (
	RolloverNotApplicable RolloverOutcome = "not_applicable"
	RolloverApplied       RolloverOutcome = "applied"
	RolloverSkippedGuard  RolloverOutcome = "skipped_guard"
	RolloverNoPrevious    RolloverOutcome = "no_previous"
	RolloverFailed        RolloverOutcome = "failed"
)

type rolloverResult struct {
	Outcome RolloverOutcome
	Carried int
}

// mergeRollover seeds the new period with the previous period's table on the
// first day of the month, prepending it ahead of the fresh batch. When the
// family's guard is enabled, carry-forward is skipped if the current table
// already holds rows dated in the current month, so re-running the
// first-of-month job cannot duplicate the previous period's tail.
func (p *Pipeline) mergeRollover(ctx context.Context, now time.Time, batch *[]models.MarketPriceRecord) rolloverResult {
	if !store.FirstOfPeriod(now) {
		return rolloverResult{Outcome: RolloverNotApplicable}
	}

	if p.Family.RolloverGuard {
		table := store.TableName(now)
		count, err := p.Store.CountMonthRows(ctx, p.Family.Dataset, table, now.Year(), now.Month())
		switch {
		case errors.Is(err, store.ErrTableNotFound):
			// No table yet means no existing data; proceed.
		case err != nil:
			p.Logger.Warn("rollover guard check failed",
				zap.String("family", p.Family.Name),
				zap.Error(err))
			return rolloverResult{Outcome: RolloverFailed}
		case count > 0:
			p.Logger.Info("current month already has data, skipping carry-forward",
				zap.String("family", p.Family.Name),
				zap.Int64("rows", count))
			return rolloverResult{Outcome: RolloverSkippedGuard}
		}
	}

	prevTable := store.TableName(store.PreviousPeriod(now))
	prev, err := p.Store.ReadAll(ctx, p.Family.Dataset, prevTable, p.Family.GradeSex)
	if errors.Is(err, store.ErrTableNotFound) {
		p.Logger.Info("no previous month table, skipping carry-forward",
			zap.String("family", p.Family.Name),
			zap.String("table", prevTable))
		return rolloverResult{Outcome: RolloverNoPrevious}
	}
	if err != nil {
		p.Logger.Warn("previous month read failed, skipping carry-forward",
			zap.String("family", p.Family.Name),
			zap.String("table", prevTable),
			zap.Error(err))
		return rolloverResult{Outcome: RolloverFailed}
	}

	merged := make([]models.MarketPriceRecord, 0, len(prev)+len(*batch))
	merged = append(merged, prev...)
	merged = append(merged, *batch...)
	*batch = merged

	p.Logger.Info("carried forward previous month",
		zap.String("family", p.Family.Name),
		zap.String("table", prevTable),
		zap.Int("rows", len(prev)))
	return rolloverResult{Outcome: RolloverApplied, Carried: len(prev)}
}
