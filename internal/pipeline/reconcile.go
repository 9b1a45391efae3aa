package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"agrimarket/internal/jobs"
	"agrimarket/internal/models"
)

// Dedup drops later duplicates by the family's dedup key; the first
// occurrence in input order wins.
func Dedup(rows []models.MarketPriceRecord, gradeSex bool) []models.MarketPriceRecord {
	seen := make(map[string]struct{}, len(rows))
	out := make([]models.MarketPriceRecord, 0, len(rows))
	for _, rec := range rows {
		key := rec.DedupKey(gradeSex)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// reconcile converts the appended, possibly duplicate-laden period table into
// a deduplicated table with the explicit family schema. The table is read
// back most-recent-first, deduplicated in memory, and rebuilt through the
// store's staging-and-swap load. Repeated appends of overlapping batches
// converge to one row per dedup key.
func (p *Pipeline) reconcile(ctx context.Context, table string) (int, error) {
	rows, err := p.Store.ReadAll(ctx, p.Family.Dataset, table, p.Family.GradeSex)
	if err != nil {
		return 0, fmt.Errorf("read back: %w", err)
	}

	deduped := Dedup(rows, p.Family.GradeSex)
	p.Logger.Info("deduplicated period table",
		zap.String("family", p.Family.Name),
		zap.String("table", table),
		zap.Int("before", len(rows)),
		zap.Int("after", len(deduped)))

	job := p.Store.Rebuild(ctx, p.Family.Dataset, table, p.Family.GradeSex, deduped)
	if err := jobs.Wait(ctx, job, p.PollInterval, p.LoadTimeout); err != nil {
		return 0, fmt.Errorf("rebuild: %w", err)
	}
	return len(deduped), nil
}
