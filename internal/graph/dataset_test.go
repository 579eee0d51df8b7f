package graph

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestParseRevenue(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{"€911,750", 911750},
		{"€ 7 500", 7500},
		{"12000.50", 12000.5},
		{"N/A", 0},
		{"", 0},
		{150000.0, 150000},
		{int64(42), 42},
		{json.Number("50000"), 50000},
		{nil, 0},
	}
	for _, tt := range tests {
		if got := ParseRevenue(tt.in); got != tt.want {
			t.Errorf("ParseRevenue(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseProductRef(t *testing.T) {
	tests := []struct {
		in     string
		id     string
		qty    int64
		wantOK bool
	}{
		{"PG-M01 x3", "PG-M01", 3, true},
		{"PG-U01 x2", "PG-U01", 2, true},
		{"PG-U01", "PG-U01", 0, false},
		{"PG-U01 xdeux", "PG-U01 xdeux", 0, false},
		{"PG-U01 x2 x3", "PG-U01 x2 x3", 0, false},
	}
	for _, tt := range tests {
		id, qty, ok := ParseProductRef(tt.in)
		if id != tt.id || qty != tt.qty || ok != tt.wantOK {
			t.Errorf("ParseProductRef(%q) = (%q, %d, %v), want (%q, %d, %v)",
				tt.in, id, qty, ok, tt.id, tt.qty, tt.wantOK)
		}
	}
}

func TestReadDataset(t *testing.T) {
	ds, report, err := ReadDataset("testdata")
	if err != nil {
		t.Fatalf("ReadDataset: %v", err)
	}
	if len(report.Loaded) != 3 {
		t.Errorf("loaded = %v", report.Loaded)
	}
	if len(ds.Products) != 3 || len(ds.TradeShows) != 3 || len(ds.Events) != 3 || len(ds.Projects) != 3 {
		t.Fatalf("unexpected node counts: %d products, %d shows, %d events, %d projects",
			len(ds.Products), len(ds.TradeShows), len(ds.Events), len(ds.Projects))
	}
	if ds.TradeShows[0].TotalSales != 911750 {
		t.Errorf("total sales = %v", ds.TradeShows[0].TotalSales)
	}
	if len(ds.Sales) != 4 {
		t.Errorf("sales = %d, want 4 (zero-unit sales are skipped)", len(ds.Sales))
	}
	if ds.Sales[0].SaleID != "TS-001_particuliers" {
		t.Errorf("sale id = %s", ds.Sales[0].SaleID)
	}
	// The bare PG-U01 reference of the entreprises sale has no quantity.
	if len(ds.SaleItems) != 5 {
		t.Errorf("sale items = %d, want 5", len(ds.SaleItems))
	}
	// PG-X99 is not a product.
	if len(ds.Displays) != 3 {
		t.Errorf("displays = %d, want 3", len(ds.Displays))
	}
	if len(ds.Targets) != 3 {
		t.Errorf("targets = %d, want 3", len(ds.Targets))
	}
	var bare *Deployment
	for i := range ds.Deployments {
		d := &ds.Deployments[i]
		if d.ProductID == "PG-U01" && d.EventID == "EV-001" {
			bare = d
		}
	}
	if bare == nil || bare.Quantity != 1 {
		t.Errorf("bare deployment reference should have quantity 1: %+v", bare)
	}
	if ds.Events[1].Attendees != "N/A" {
		t.Errorf("missing attendees = %v, want N/A", ds.Events[1].Attendees)
	}
	if ds.Projects[1].ProjectedSavings != "N/A" {
		t.Errorf("missing savings = %v, want N/A", ds.Projects[1].ProjectedSavings)
	}
	if ds.Products[0].TotalCost != int64(1200) {
		t.Errorf("total cost = %#v, want int64(1200)", ds.Products[0].TotalCost)
	}
	if got := ds.BatteryTypes(); len(got) != 2 || got[0] != "LiFePO4" {
		t.Errorf("battery types = %v", got)
	}
}

func TestReadDataset_Malformed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ProductsFile), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadDataset(dir); err == nil {
		t.Fatal("expected error for malformed file")
	}
}
