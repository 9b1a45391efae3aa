package store

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTableName(t *testing.T) {
	cases := []struct {
		in   time.Time
		want string
	}{
		{day(2024, time.March, 15), "market_prices_2024_mar"},
		{day(2024, time.January, 1), "market_prices_2024_jan"},
		{day(2025, time.December, 31), "market_prices_2025_dec"},
	}
	for _, c := range cases {
		if got := TableName(c.in); got != c.want {
			t.Fatalf("TableName(%v)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestPreviousPeriod(t *testing.T) {
	if got := TableName(PreviousPeriod(day(2024, time.March, 15))); got != "market_prices_2024_feb" {
		t.Fatalf("got %q", got)
	}
	// Year boundary.
	if got := TableName(PreviousPeriod(day(2025, time.January, 1))); got != "market_prices_2024_dec" {
		t.Fatalf("got %q", got)
	}
}

func TestFirstOfPeriod(t *testing.T) {
	if !FirstOfPeriod(day(2024, time.April, 1)) {
		t.Fatalf("april 1 should be first of period")
	}
	if FirstOfPeriod(day(2024, time.April, 2)) {
		t.Fatalf("april 2 should not be first of period")
	}
}
