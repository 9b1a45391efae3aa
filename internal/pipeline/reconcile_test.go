package pipeline

import (
	"testing"

	"agrimarket/internal/models"
)

func strptr(s string) *string { return &s }

func TestDedup_FirstOccurrenceWins(t *testing.T) {
	a := storedRec(t, "Nairobi", 3500, "2024-03-15")
	b := storedRec(t, "Nairobi", 3500, "2024-03-15")
	c := storedRec(t, "Mombasa", 3600, "2024-03-15")

	out := Dedup([]models.MarketPriceRecord{a, b, c}, false)
	if len(out) != 2 {
		t.Fatalf("len=%d want 2", len(out))
	}
	if out[0].Market != "Nairobi" || out[1].Market != "Mombasa" {
		t.Fatalf("order broken: %+v", out)
	}
}

func TestDedup_Idempotent(t *testing.T) {
	rows := []models.MarketPriceRecord{
		storedRec(t, "Nairobi", 3500, "2024-03-15"),
		storedRec(t, "Nairobi", 3500, "2024-03-15"),
		storedRec(t, "Kisumu", 3400, "2024-03-14"),
	}
	once := Dedup(rows, false)
	twice := Dedup(once, false)
	if len(once) != len(twice) {
		t.Fatalf("dedup not idempotent: %d vs %d", len(once), len(twice))
	}
}

func TestDedup_NullsDistinctFromValues(t *testing.T) {
	a := storedRec(t, "Nairobi", 3500, "2024-03-15")
	b := a
	b.Wholesale = nil
	out := Dedup([]models.MarketPriceRecord{a, b}, false)
	if len(out) != 2 {
		t.Fatalf("len=%d want 2: null and value must not collide", len(out))
	}
}

func TestDedup_GradeSexJoinsKeyOnlyWhenEnabled(t *testing.T) {
	a := storedRec(t, "Garissa", 8000, "2024-03-12")
	a.Grade = strptr("A")
	b := a
	b.Grade = strptr("B")

	withKey := Dedup([]models.MarketPriceRecord{a, b}, true)
	if len(withKey) != 2 {
		t.Fatalf("grade should split records: len=%d", len(withKey))
	}
	withoutKey := Dedup([]models.MarketPriceRecord{a, b}, false)
	if len(withoutKey) != 1 {
		t.Fatalf("grade should be ignored: len=%d", len(withoutKey))
	}
}
