package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"agrimarket/internal/client/kamis"
	"agrimarket/internal/jobs"
	"agrimarket/internal/models"
	"agrimarket/internal/store"
)

// stubStore is a test-only in-memory implementation of store.PeriodStore.
// Tables are keyed "dataset.table"; a missing key behaves like a missing
// warehouse table.
type stubStore struct {
	mu           sync.Mutex
	tables       map[string][]models.MarketPriceRecord
	runs         []models.IngestRun
	appendCalls  int
	rebuildCalls int
	appendErr    error
}

func newStubStore() *stubStore {
	return &stubStore{tables: map[string][]models.MarketPriceRecord{}}
}

func (s *stubStore) key(dataset, table string) string { return dataset + "." + table }

func (s *stubStore) seed(dataset, table string, rows ...models.MarketPriceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[s.key(dataset, table)] = append(s.tables[s.key(dataset, table)], rows...)
}

func (s *stubStore) rows(dataset, table string) []models.MarketPriceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MarketPriceRecord(nil), s.tables[s.key(dataset, table)]...)
}

func (s *stubStore) TableExists(ctx context.Context, dataset, table string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[s.key(dataset, table)]
	return ok, nil
}

func (s *stubStore) CountMonthRows(ctx context.Context, dataset, table string, year int, month time.Month) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tables[s.key(dataset, table)]
	if !ok {
		return 0, store.ErrTableNotFound
	}
	var count int64
	for _, r := range rows {
		if r.Date.Year() == year && r.Date.Month() == month {
			count++
		}
	}
	return count, nil
}

func (s *stubStore) ReadAll(ctx context.Context, dataset, table string, gradeSex bool) ([]models.MarketPriceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tables[s.key(dataset, table)]
	if !ok {
		return nil, store.ErrTableNotFound
	}
	out := append([]models.MarketPriceRecord(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *stubStore) Append(ctx context.Context, dataset, table string, gradeSex bool, rows []models.MarketPriceRecord) *jobs.Job {
	s.mu.Lock()
	s.appendCalls++
	err := s.appendErr
	s.mu.Unlock()
	if err != nil {
		return jobs.Failed(err)
	}
	return jobs.Start(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		k := s.key(dataset, table)
		s.tables[k] = append(s.tables[k], rows...)
		return nil
	})
}

func (s *stubStore) Rebuild(ctx context.Context, dataset, table string, gradeSex bool, rows []models.MarketPriceRecord) *jobs.Job {
	s.mu.Lock()
	s.rebuildCalls++
	s.mu.Unlock()
	return jobs.Start(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.tables[s.key(dataset, table)] = append([]models.MarketPriceRecord(nil), rows...)
		return nil
	})
}

func (s *stubStore) RecordRun(ctx context.Context, run *models.IngestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return nil
}

func (s *stubStore) ListRuns(ctx context.Context, family string, limit int) ([]models.IngestRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.IngestRun
	for _, r := range s.runs {
		if family == "" || r.Family == family {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubStore) lastRun() (models.IngestRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.runs) == 0 {
		return models.IngestRun{}, false
	}
	return s.runs[len(s.runs)-1], true
}

// stubSource serves canned pages keyed by "{commodity}/{offset}". A missing
// key fails the fetch, which is how the live site behaves past the end of an
// item's data.
type stubSource struct {
	perPage int
	pages   map[string]kamis.Table
}

func (s *stubSource) PerPage() int { return s.perPage }

func (s *stubSource) FetchPage(ctx context.Context, commodity, offset int) (kamis.Table, error) {
	tbl, ok := s.pages[fmt.Sprintf("%d/%d", commodity, offset)]
	if !ok {
		return kamis.Table{}, errors.New("no table element in response")
	}
	return tbl, nil
}
