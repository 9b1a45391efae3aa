package pipeline

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"agrimarket/internal/models"
)

var (
	nonIdentPattern       = regexp.MustCompile(`[^0-9a-zA-Z_]`)
	leadingDecimalPattern = regexp.MustCompile(`\d+\.?\d*`)
)

// Date layouts the source is known to emit. Anything else fails the run; a
// silently misparsed date would corrupt the period partitioning.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
}

// CanonicalColumn normalizes a raw header: trimmed, lower-cased, spaces to
// underscores, anything outside [0-9a-zA-Z_] stripped.
func CanonicalColumn(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "_")
	return nonIdentPattern.ReplaceAllString(s, "")
}

// ExtractPrice pulls the leading decimal out of a free-text price cell
// ("3500 Kshs" -> 3500). A cell without a number is NULL, not an error.
func ExtractPrice(cell string) *float64 {
	m := leadingDecimalPattern.FindString(cell)
	if m == "" {
		return nil
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return nil
	}
	f, _ := d.Float64()
	return &f
}

func parseDate(cell string) (time.Time, error) {
	v := strings.TrimSpace(cell)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", cell)
}

// NormalizeRows turns raw fetched rows into typed records. Columns not
// meaningful for the family (grade/sex) are dropped. A nil, empty result
// means there is nothing to load.
func NormalizeRows(raws []RawRow, gradeSex bool) ([]models.MarketPriceRecord, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	out := make([]models.MarketPriceRecord, 0, len(raws))
	for _, raw := range raws {
		cells := make(map[string]string, len(raw))
		for k, v := range raw {
			cells[CanonicalColumn(k)] = v
		}
		date, err := parseDate(cells["date"])
		if err != nil {
			return nil, err
		}
		rec := models.MarketPriceRecord{
			Commodity:      strings.TrimSpace(cells["commodity"]),
			Classification: strings.TrimSpace(cells["classification"]),
			Market:         strings.TrimSpace(cells["market"]),
			Wholesale:      ExtractPrice(cells["wholesale"]),
			Retail:         ExtractPrice(cells["retail"]),
			SupplyVolume:   ExtractPrice(cells["supply_volume"]),
			County:         strings.TrimSpace(cells["county"]),
			Date:           date,
		}
		if gradeSex {
			rec.Grade = optCell(cells, "grade")
			rec.Sex = optCell(cells, "sex")
		}
		out = append(out, rec)
	}
	return out, nil
}

func optCell(cells map[string]string, key string) *string {
	v, ok := cells[key]
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	return &v
}
