package pipeline

import (
	"context"

	"go.uber.org/zap"

	"agrimarket/internal/client/kamis"
)

const defaultMaxPages = 50

// RawRow is one table row keyed by the source's raw column headers.
type RawRow map[string]string

// fetchAll walks every commodity's pages in order. The source offers no
// end-of-data signal: pagination for an item stops when a request ultimately
// fails (a past-the-end page has no table) or at the page safety cap. A
// failing item keeps the pages already collected and never aborts the run.
func (p *Pipeline) fetchAll(ctx context.Context) []RawRow {
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	var out []RawRow
	for _, commodity := range p.Family.Commodities {
		offset := 0
		for page := 0; page < maxPages; page++ {
			tbl, err := p.Source.FetchPage(ctx, commodity, offset)
			if err != nil {
				p.Logger.Warn("market page fetch failed, keeping partial pages",
					zap.String("family", p.Family.Name),
					zap.Int("commodity", commodity),
					zap.Int("offset", offset),
					zap.Error(err))
				break
			}
			out = append(out, rowsFromTable(tbl)...)
			offset += p.Source.PerPage()
		}
	}
	return out
}

func rowsFromTable(t kamis.Table) []RawRow {
	rows := make([]RawRow, 0, len(t.Rows))
	for _, cells := range t.Rows {
		row := RawRow{}
		for i, col := range t.Columns {
			if i < len(cells) {
				row[col] = cells[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}
