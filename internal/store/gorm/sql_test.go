package gormstore

import (
	"strings"
	"testing"
)

func TestQualify(t *testing.T) {
	ident, err := qualify("livestock", "market_prices_2024_mar")
	if err != nil {
		t.Fatalf("qualify: %v", err)
	}
	if ident != `"livestock"."market_prices_2024_mar"` {
		t.Fatalf("ident=%q", ident)
	}
}

func TestQualify_RejectsInvalidIdentifiers(t *testing.T) {
	if _, err := qualify(`bad"name`, "t"); err == nil {
		t.Fatalf("expected error for dataset")
	}
	if _, err := qualify("ok", "t; DROP TABLE x"); err == nil {
		t.Fatalf("expected error for table")
	}
	if _, err := qualify("ok", "2024_table"); err == nil {
		t.Fatalf("identifier must not start with a digit")
	}
}

func TestCreateTableSQL_ColumnOrder(t *testing.T) {
	ddl, err := createTableSQL("livestock", "market_prices_2024_mar", true)
	if err != nil {
		t.Fatalf("ddl: %v", err)
	}
	wantOrder := []string{"commodity", "classification", "grade", "sex", "market", "wholesale", "retail", "supply_volume", "county", "date"}
	pos := -1
	for _, col := range wantOrder {
		idx := strings.Index(ddl, col+" ")
		if idx < 0 {
			t.Fatalf("column %q missing from %q", col, ddl)
		}
		if idx < pos {
			t.Fatalf("column %q out of order in %q", col, ddl)
		}
		pos = idx
	}
	if !strings.Contains(ddl, "date DATE") {
		t.Fatalf("date column type wrong: %q", ddl)
	}
	if !strings.Contains(ddl, "wholesale DOUBLE PRECISION") {
		t.Fatalf("wholesale column type wrong: %q", ddl)
	}
}

func TestCreateTableSQL_NoGradeSex(t *testing.T) {
	ddl, err := createTableSQL("fertilizer", "market_prices_2024_mar", false)
	if err != nil {
		t.Fatalf("ddl: %v", err)
	}
	if strings.Contains(ddl, "grade") || strings.Contains(ddl, "sex") {
		t.Fatalf("unexpected grade/sex columns: %q", ddl)
	}
}

func TestColumnsMatchTypes(t *testing.T) {
	for _, gradeSex := range []bool{true, false} {
		if len(columns(gradeSex)) != len(columnTypes(gradeSex)) {
			t.Fatalf("column/type length mismatch for gradeSex=%v", gradeSex)
		}
	}
}
