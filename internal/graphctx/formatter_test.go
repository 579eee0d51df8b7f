package graphctx

import (
	"strings"
	"testing"

	"github.com/hyperjump/musubi/internal/models"
)

func TestFormat_Empty(t *testing.T) {
	if got := Format(nil); got != "" {
		t.Errorf("Format(nil) = %q", got)
	}
	if got := Format([]models.GraphContextItem{}); got != "" {
		t.Errorf("Format([]) = %q", got)
	}
}

func TestFormat_Layout(t *testing.T) {
	items := []models.GraphContextItem{{
		QueryType: "top_revenue_tradeshows",
		Results: []models.Row{
			row("name", "Pollutec Paris", "total_sales", 911750.0),
			row("name", "Salon des Maires", "total_sales", 150000.5),
		},
	}}
	want := "\n=== Résultats de la requête: top_revenue_tradeshows ===\n" +
		"\nname: Pollutec Paris\ntotal_sales: 911750.0\n---" +
		"\nname: Salon des Maires\ntotal_sales: 150000.5\n---"
	if got := Format(items); got != want {
		t.Errorf("Format() =\n%q\nwant\n%q", got, want)
	}
}

func TestFormat_RowSeparators(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		rows := make([]models.Row, n)
		for i := range rows {
			rows[i] = row("i", int64(i))
		}
		got := Format([]models.GraphContextItem{{QueryType: "q", Results: rows}})
		if c := strings.Count(got, "\n---"); c != n {
			t.Errorf("%d rows: %d separators", n, c)
		}
	}
}

func TestFormat_FieldOrderAndLiterals(t *testing.T) {
	items := []models.GraphContextItem{
		{QueryType: "a", Results: []models.Row{row("zeta", "z", "alpha", "a")}},
		{QueryType: "b", Results: []models.Row{row("products_used", []any{"PowerGen Ultra", "PowerGen Mobile"})}},
	}
	got := Format(items)
	if strings.Index(got, "zeta: z") > strings.Index(got, "alpha: a") {
		t.Errorf("field order not preserved:\n%s", got)
	}
	if !strings.Contains(got, "products_used: PowerGen Ultra, PowerGen Mobile") {
		t.Errorf("list not joined:\n%s", got)
	}
	if strings.Index(got, "requête: a") > strings.Index(got, "requête: b") {
		t.Errorf("item order not preserved:\n%s", got)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"Pollutec", "Pollutec"},
		{"", ""},
		{int64(42), "42"},
		{7, "7"},
		{911750.0, "911750.0"},
		{25.0, "25.0"},
		{12.5, "12.5"},
		{0.1, "0.1"},
		{0.0, "0.0"},
		{true, "true"},
		{false, "false"},
		{nil, "N/A"},
		{[]any{}, ""},
		{[]any{"a", int64(1), 2.0}, "a, 1, 2.0"},
		{[]string{"x", "y"}, "x, y"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatValue_LargeAndSmallFloats(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1234567.5, "1234567.5"},
		{0.0001, "0.0001"},
		{1e-7, "1e-07"},
		{1e16, "1e+16"},
		{-3.0, "-3.0"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
