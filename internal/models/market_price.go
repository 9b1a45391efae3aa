package models

import (
	"strconv"
	"strings"
	"time"
)

// MarketPriceRecord is one observed price quote from a KAMIS market table.
// Wholesale, retail and supply volume are nullable: the source renders them as
// free text ("3500 Kshs", "-") and a cell without a leading number stays NULL.
// Grade and sex exist only for the livestock family.
type MarketPriceRecord struct {
	Commodity      string
	Classification string
	Grade          *string
	Sex            *string
	Market         string
	Wholesale      *float64
	Retail         *float64
	SupplyVolume   *float64
	County         string
	Date           time.Time
}

// DedupKey identifies one observation. Two records with equal keys are the
// same quote; later duplicates are dropped, not merged. Grade and sex join the
// key only for the family that carries them.
func (r MarketPriceRecord) DedupKey(gradeSex bool) string {
	parts := []string{
		r.Commodity,
		r.Classification,
		r.Market,
		formatNullableFloat(r.Wholesale),
		formatNullableFloat(r.Retail),
		formatNullableFloat(r.SupplyVolume),
		r.County,
		r.Date.Format("2006-01-02"),
	}
	if gradeSex {
		parts = append(parts, formatNullableString(r.Grade), formatNullableString(r.Sex))
	}
	return strings.Join(parts, "\x1f")
}

func formatNullableFloat(f *float64) string {
	if f == nil {
		return "\x00"
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}

func formatNullableString(s *string) string {
	if s == nil {
		return "\x00"
	}
	return *s
}
