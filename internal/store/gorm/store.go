package gormstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"agrimarket/internal/jobs"
	"agrimarket/internal/models"
	"agrimarket/internal/store"
)

const insertChunkSize = 500

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// columns returns the explicit period-table schema in load order. Grade and
// sex sit between classification and market for the family that has them.
func columns(gradeSex bool) []string {
	if gradeSex {
		return []string{"commodity", "classification", "grade", "sex", "market", "wholesale", "retail", "supply_volume", "county", "date"}
	}
	return []string{"commodity", "classification", "market", "wholesale", "retail", "supply_volume", "county", "date"}
}

func columnTypes(gradeSex bool) []string {
	if gradeSex {
		return []string{"TEXT", "TEXT", "TEXT", "TEXT", "TEXT", "DOUBLE PRECISION", "DOUBLE PRECISION", "DOUBLE PRECISION", "TEXT", "DATE"}
	}
	return []string{"TEXT", "TEXT", "TEXT", "DOUBLE PRECISION", "DOUBLE PRECISION", "DOUBLE PRECISION", "TEXT", "DATE"}
}

func qualify(dataset, table string) (string, error) {
	if !identPattern.MatchString(dataset) {
		return "", fmt.Errorf("invalid dataset name %q", dataset)
	}
	if !identPattern.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return `"` + dataset + `"."` + table + `"`, nil
}

func createTableSQL(dataset, table string, gradeSex bool) (string, error) {
	ident, err := qualify(dataset, table)
	if err != nil {
		return "", err
	}
	cols := columns(gradeSex)
	types := columnTypes(gradeSex)
	defs := make([]string, 0, len(cols))
	for i, col := range cols {
		defs = append(defs, col+" "+types[i])
	}
	return "CREATE TABLE IF NOT EXISTS " + ident + " (" + strings.Join(defs, ", ") + ")", nil
}

func (s *Store) ensureTable(ctx context.Context, dataset, table string, gradeSex bool) error {
	if err := s.db.WithContext(ctx).Exec(`CREATE SCHEMA IF NOT EXISTS "` + dataset + `"`).Error; err != nil {
		return fmt.Errorf("create schema %s: %w", dataset, err)
	}
	ddl, err := createTableSQL(dataset, table, gradeSex)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return fmt.Errorf("create table %s.%s: %w", dataset, table, err)
	}
	return nil
}

func (s *Store) TableExists(ctx context.Context, dataset, table string) (bool, error) {
	var exists bool
	err := s.db.WithContext(ctx).
		Raw(`SELECT to_regclass(?) IS NOT NULL`, fmt.Sprintf("%q.%q", dataset, table)).
		Scan(&exists).Error
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) CountMonthRows(ctx context.Context, dataset, table string, year int, month time.Month) (int64, error) {
	ident, err := qualify(dataset, table)
	if err != nil {
		return 0, err
	}
	var count int64
	err = s.db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM "+ident+" WHERE EXTRACT(MONTH FROM date) = ? AND EXTRACT(YEAR FROM date) = ?", int(month), year).
		Scan(&count).Error
	if err != nil {
		if isUndefinedTable(err) {
			return 0, store.ErrTableNotFound
		}
		return 0, err
	}
	return count, nil
}

func (s *Store) ReadAll(ctx context.Context, dataset, table string, gradeSex bool) ([]models.MarketPriceRecord, error) {
	ident, err := qualify(dataset, table)
	if err != nil {
		return nil, err
	}
	cols := columns(gradeSex)
	query := "SELECT " + strings.Join(cols, ", ") + " FROM " + ident + " ORDER BY date DESC"

	rows, err := s.db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		if isUndefinedTable(err) {
			return nil, store.ErrTableNotFound
		}
		return nil, err
	}
	defer rows.Close()

	var out []models.MarketPriceRecord
	for rows.Next() {
		rec, err := scanRecord(rows, gradeSex)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanRecord(rows *sql.Rows, gradeSex bool) (models.MarketPriceRecord, error) {
	var (
		rec       models.MarketPriceRecord
		grade     sql.NullString
		sex       sql.NullString
		wholesale sql.NullFloat64
		retail    sql.NullFloat64
		volume    sql.NullFloat64
	)
	var err error
	if gradeSex {
		err = rows.Scan(&rec.Commodity, &rec.Classification, &grade, &sex, &rec.Market, &wholesale, &retail, &volume, &rec.County, &rec.Date)
	} else {
		err = rows.Scan(&rec.Commodity, &rec.Classification, &rec.Market, &wholesale, &retail, &volume, &rec.County, &rec.Date)
	}
	if err != nil {
		return models.MarketPriceRecord{}, err
	}
	if grade.Valid {
		rec.Grade = &grade.String
	}
	if sex.Valid {
		rec.Sex = &sex.String
	}
	if wholesale.Valid {
		rec.Wholesale = &wholesale.Float64
	}
	if retail.Valid {
		rec.Retail = &retail.Float64
	}
	if volume.Valid {
		rec.SupplyVolume = &volume.Float64
	}
	return rec, nil
}

func (s *Store) Append(ctx context.Context, dataset, table string, gradeSex bool, rows []models.MarketPriceRecord) *jobs.Job {
	ident, err := qualify(dataset, table)
	if err != nil {
		return jobs.Failed(err)
	}
	if err := s.ensureTable(ctx, dataset, table, gradeSex); err != nil {
		// Non-fatal by design: the load below surfaces a genuine failure.
		if s.logger != nil {
			s.logger.Warn("period table create failed",
				zap.String("dataset", dataset),
				zap.String("table", table),
				zap.Error(err))
		}
	}
	return jobs.Start(func() error {
		return s.insertRows(ctx, ident, gradeSex, rows)
	})
}

func (s *Store) Rebuild(ctx context.Context, dataset, table string, gradeSex bool, rows []models.MarketPriceRecord) *jobs.Job {
	liveIdent, err := qualify(dataset, table)
	if err != nil {
		return jobs.Failed(err)
	}
	staging := table + "__rebuild"
	stagingIdent, err := qualify(dataset, staging)
	if err != nil {
		return jobs.Failed(err)
	}
	return jobs.Start(func() error {
		db := s.db.WithContext(ctx)
		if err := db.Exec("DROP TABLE IF EXISTS " + stagingIdent).Error; err != nil {
			return fmt.Errorf("drop staging: %w", err)
		}
		ddl, err := createTableSQL(dataset, staging, gradeSex)
		if err != nil {
			return err
		}
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("create staging: %w", err)
		}
		if err := s.insertRows(ctx, stagingIdent, gradeSex, rows); err != nil {
			return fmt.Errorf("load staging: %w", err)
		}
		// The swap is the only moment the live table changes, and it happens
		// atomically inside one transaction.
		return db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec("DROP TABLE IF EXISTS " + liveIdent).Error; err != nil {
				return err
			}
			return tx.Exec(`ALTER TABLE ` + stagingIdent + ` RENAME TO "` + table + `"`).Error
		})
	})
}

func (s *Store) insertRows(ctx context.Context, ident string, gradeSex bool, rows []models.MarketPriceRecord) error {
	if len(rows) == 0 {
		return nil
	}
	cols := columns(gradeSex)
	prefix := "INSERT INTO " + ident + " (" + strings.Join(cols, ", ") + ") VALUES "
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",") + ")"

	for start := 0; start < len(rows); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		values := make([]string, 0, len(chunk))
		args := make([]any, 0, len(chunk)*len(cols))
		for _, rec := range chunk {
			values = append(values, placeholder)
			args = append(args, recordArgs(rec, gradeSex)...)
		}
		if err := s.db.WithContext(ctx).Exec(prefix+strings.Join(values, ", "), args...).Error; err != nil {
			return err
		}
	}
	return nil
}

func recordArgs(rec models.MarketPriceRecord, gradeSex bool) []any {
	date := rec.Date.Format("2006-01-02")
	if gradeSex {
		return []any{rec.Commodity, rec.Classification, rec.Grade, rec.Sex, rec.Market, rec.Wholesale, rec.Retail, rec.SupplyVolume, rec.County, date}
	}
	return []any{rec.Commodity, rec.Classification, rec.Market, rec.Wholesale, rec.Retail, rec.SupplyVolume, rec.County, date}
}

func (s *Store) RecordRun(ctx context.Context, run *models.IngestRun) error {
	if s == nil || s.db == nil || run == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *Store) ListRuns(ctx context.Context, family string, limit int) ([]models.IngestRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := s.db.WithContext(ctx).Model(&models.IngestRun{})
	if strings.TrimSpace(family) != "" {
		query = query.Where("family = ?", strings.TrimSpace(family))
	}
	var runs []models.IngestRun
	if err := query.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
