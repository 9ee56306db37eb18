package clinreview

import (
	"testing"
	"time"
)

func TestSeverityRank(t *testing.T) {
	tests := []struct {
		severity Severity
		want     int
	}{
		{SeverityHigh, 0},
		{SeverityMedium, 1},
		{SeverityLow, 2},
		{Severity("bogus"), 3},
	}

	for _, tt := range tests {
		if got := tt.severity.Rank(); got != tt.want {
			t.Errorf("Rank(%q) = %d, want %d", tt.severity, got, tt.want)
		}
	}
}

func TestSeverityIsValid(t *testing.T) {
	for _, s := range []Severity{SeverityHigh, SeverityMedium, SeverityLow} {
		if !s.IsValid() {
			t.Errorf("IsValid(%q) = false, want true", s)
		}
	}
	if Severity("critical").IsValid() {
		t.Error("IsValid(\"critical\") = true, want false")
	}
}

func TestSortReviewItems(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
	}

	items := []ReviewItem{
		{ID: "low-new", Severity: SeverityLow, DateIdentified: day(20)},
		{ID: "med-old", Severity: SeverityMedium, DateIdentified: day(1)},
		{ID: "high", Severity: SeverityHigh, DateIdentified: day(5)},
		{ID: "med-new", Severity: SeverityMedium, DateIdentified: day(15)},
	}

	SortReviewItems(items)

	want := []string{"high", "med-new", "med-old", "low-new"}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, id)
		}
	}
}

func TestSortReviewItemsStable(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	items := []ReviewItem{
		{ID: "first", Severity: SeverityMedium, DateIdentified: date},
		{ID: "second", Severity: SeverityMedium, DateIdentified: date},
	}

	SortReviewItems(items)

	if items[0].ID != "first" || items[1].ID != "second" {
		t.Errorf("equal items reordered: got [%s, %s]", items[0].ID, items[1].ID)
	}
}

func TestReviewItemBuilder(t *testing.T) {
	date := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	item := NewReviewItem(ItemLabAbnormal, SeverityMedium).
		ID("lab-abnormal-4548-4-2024-02-10").
		Title("Abnormal HbA1c").
		Description("HbA1c is 9.1 %, outside the reference range 4-5.6").
		Details("value=9.1").
		Ref("Observation/o1").
		Chart("line").
		Action(true).
		Identified(date).
		Build()

	if item.Type != ItemLabAbnormal {
		t.Errorf("Type = %q, want %q", item.Type, ItemLabAbnormal)
	}
	if item.Severity != SeverityMedium {
		t.Errorf("Severity = %q, want %q", item.Severity, SeverityMedium)
	}
	if item.ID != "lab-abnormal-4548-4-2024-02-10" {
		t.Errorf("ID = %q", item.ID)
	}
	if item.Title != "Abnormal HbA1c" {
		t.Errorf("Title = %q", item.Title)
	}
	if item.ResourceRef != "Observation/o1" {
		t.Errorf("ResourceRef = %q", item.ResourceRef)
	}
	if item.ChartHint != "line" {
		t.Errorf("ChartHint = %q", item.ChartHint)
	}
	if !item.ActionRequired {
		t.Error("ActionRequired = false, want true")
	}
	if !item.DateIdentified.Equal(date) {
		t.Errorf("DateIdentified = %v, want %v", item.DateIdentified, date)
	}
}
