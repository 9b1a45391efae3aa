package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agrimarket/internal/jobs"
	"agrimarket/internal/models"
)

// ErrTableNotFound reports a period table that does not exist yet. Callers
// treat it as "no data", not as a failure.
var ErrTableNotFound = errors.New("period table not found")

// PeriodStore is the destination warehouse. Period tables are addressed as
// {dataset}.{table}; loads are asynchronous and polled to completion through
// their job handle.
type PeriodStore interface {
	// TableExists reports whether the period table is present.
	TableExists(ctx context.Context, dataset, table string) (bool, error)

	// CountMonthRows counts rows of the table dated in the given month.
	// Returns ErrTableNotFound when the table does not exist.
	CountMonthRows(ctx context.Context, dataset, table string, year int, month time.Month) (int64, error)

	// ReadAll returns the table's full content ordered by date descending.
	// Returns ErrTableNotFound when the table does not exist.
	ReadAll(ctx context.Context, dataset, table string, gradeSex bool) ([]models.MarketPriceRecord, error)

	// Append loads rows into the period table with append semantics, creating
	// the table with the explicit family schema when absent. A failed create
	// is logged and the load proceeds regardless.
	Append(ctx context.Context, dataset, table string, gradeSex bool, rows []models.MarketPriceRecord) *jobs.Job

	// Rebuild replaces the period table with exactly the given rows: the rows
	// are loaded into a staging table created with the explicit schema, then
	// swapped over the live name in one transaction. External readers never
	// observe a missing table.
	Rebuild(ctx context.Context, dataset, table string, gradeSex bool, rows []models.MarketPriceRecord) *jobs.Job

	RecordRun(ctx context.Context, run *models.IngestRun) error
	ListRuns(ctx context.Context, family string, limit int) ([]models.IngestRun, error)
}

// TableName derives the deterministic period-table name for a processing
// date, e.g. market_prices_2024_mar.
func TableName(t time.Time) string {
	return fmt.Sprintf("market_prices_%d_%s", t.Year(), strings.ToLower(t.Format("Jan")))
}

// PreviousPeriod returns a date inside the period immediately before t's:
// the day before the first of t's month.
func PreviousPeriod(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, 0, -1)
}

// FirstOfPeriod reports whether t is the first day of its month, which is
// when carry-forward from the previous period is considered.
func FirstOfPeriod(t time.Time) bool {
	return t.Day() == 1
}
