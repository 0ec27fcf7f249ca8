package validator

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"123e4567-e89b-12d3-a456-426614174000",
		"123E4567-E89B-12D3-A456-426614174000",
	}
	invalid := []string{
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",
		"g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"{123e4567-e89b-12d3-a456-426614174000}",
		"",
	}
	for _, id := range valid {
		if !IsValidUUID(id) {
			t.Errorf("IsValidUUID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if IsValidUUID(id) {
			t.Errorf("IsValidUUID(%q) = true, want false", id)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31", "2024-02-29"}
	invalid := []string{"2023-13-01", "2023-02-30", "01-01-2023", ""}
	for _, d := range valid {
		if _, ok := IsValidDate(d); !ok {
			t.Errorf("IsValidDate(%q) = false, want true", d)
		}
	}
	for _, d := range invalid {
		if _, ok := IsValidDate(d); ok {
			t.Errorf("IsValidDate(%q) = true, want false", d)
		}
	}
}

func TestSumsToHundred(t *testing.T) {
	cases := []struct {
		name  string
		input []string
		want  bool
	}{
		{"exact", []string{"60", "40"}, true},
		{"within tolerance above", []string{"50", "50.004"}, true},
		{"tolerance boundary", []string{"99.99"}, true},
		{"short by half", []string{"49.5", "50"}, false},
		{"over", []string{"70", "30.02"}, false},
		{"single", []string{"100"}, true},
	}
	for _, c := range cases {
		var ps []decimal.Decimal
		for _, s := range c.input {
			ps = append(ps, decimal.RequireFromString(s))
		}
		if _, got := SumsToHundred(ps); got != c.want {
			t.Errorf("%s: SumsToHundred(%v) = %v, want %v", c.name, c.input, got, c.want)
		}
	}
}

func TestIsPercentage(t *testing.T) {
	if !IsPercentage(decimal.NewFromInt(100)) {
		t.Error("IsPercentage(100) = false, want true")
	}
	if IsPercentage(decimal.Zero) {
		t.Error("IsPercentage(0) = true, want false")
	}
	if IsPercentage(decimal.RequireFromString("100.01")) {
		t.Error("IsPercentage(100.01) = true, want false")
	}
}

func TestValidationErrorsToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "period_start", Message: "is required"},
		{Field: "period_end", Message: "must be after period_start"},
	}
	m := errs.ToMap()
	if len(m) != 2 || m["period_end"] != "must be after period_start" {
		t.Errorf("ToMap() = %v", m)
	}
	if errs.Error() != "period_start: is required; period_end: must be after period_start" {
		t.Errorf("Error() = %q", errs.Error())
	}
}
