package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/hyperjump/musubi/internal/models"
)

func TestQueries_Definitions(t *testing.T) {
	qs := Queries()
	if len(qs) != 8 {
		t.Fatalf("expected 8 queries, got %d", len(qs))
	}
	for _, q := range qs {
		t.Run(string(q.Name), func(t *testing.T) {
			for _, p := range q.Params {
				if !strings.Contains(q.Cypher, "$"+p.Name) {
					t.Errorf("cypher does not use $%s", p.Name)
				}
				if !strings.Contains(q.SQL, "$"+p.Name) {
					t.Errorf("sql does not use $%s", p.Name)
				}
			}
			fields := make(map[string]bool, len(q.Fields))
			for _, f := range q.Fields {
				fields[f] = true
				if !strings.Contains(q.Cypher, f) || !strings.Contains(q.SQL, f) {
					t.Errorf("field %s missing from a dialect", f)
				}
			}
			for _, l := range q.Lists {
				if !fields[l] {
					t.Errorf("list %s is not an output field", l)
				}
			}
			if got, ok := Lookup(q.Name); !ok || got != q {
				t.Errorf("Lookup(%s) failed", q.Name)
			}
		})
	}
}

func TestBind(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		want    map[string]any
		wantErr bool
	}{
		{
			name: "optional location unset binds null",
			spec: Spec{Query: QueryEventsWithProductsSoldAtTradeShows},
			want: map[string]any{"location": nil},
		},
		{
			name: "default customer type",
			spec: Spec{Query: QueryTradeShowSalesByCustomerType},
			want: map[string]any{"customer_type": "collectivites"},
		},
		{
			name: "default limit",
			spec: Spec{Query: QueryTopRevenueTradeShows},
			want: map[string]any{"limit": int64(5)},
		},
		{
			name: "int limit coerced",
			spec: Spec{Query: QueryTopRevenueTradeShows, Params: map[string]any{"limit": 3}},
			want: map[string]any{"limit": int64(3)},
		},
		{
			name: "float limit coerced",
			spec: Spec{Query: QueryTopRevenueTradeShows, Params: map[string]any{"limit": 2.0}},
			want: map[string]any{"limit": int64(2)},
		},
		{
			name:    "fractional limit rejected",
			spec:    Spec{Query: QueryTopRevenueTradeShows, Params: map[string]any{"limit": 2.5}},
			wantErr: true,
		},
		{
			name:    "missing required",
			spec:    Spec{Query: QueryTotalCO2SavedByProduct},
			wantErr: true,
		},
		{
			name:    "unknown parameter",
			spec:    Spec{Query: QueryRDProjectsForFestivalProducts, Params: map[string]any{"x": "y"}},
			wantErr: true,
		},
		{
			name:    "wrong type",
			spec:    Spec{Query: QueryProductsByBatteryType, Params: map[string]any{"battery_type": 4}},
			wantErr: true,
		},
		{
			name:    "unknown query",
			spec:    Spec{Query: "nope"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Bind(tt.spec)
			if tt.wantErr {
				if !errors.Is(err, models.ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Bind: %v", err)
			}
			if len(stmt.Params) != len(tt.want) {
				t.Fatalf("params = %v, want %v", stmt.Params, tt.want)
			}
			for k, v := range tt.want {
				if got, ok := stmt.Params[k]; !ok || got != v {
					t.Errorf("param %s = %v (%T), want %v (%T)", k, got, got, v, v)
				}
			}
		})
	}
}

type recordingExecutor struct {
	stmts []Statement
	rows  []models.Row
}

func (r *recordingExecutor) Run(_ context.Context, stmt Statement) ([]models.Row, error) {
	r.stmts = append(r.stmts, stmt)
	return r.rows, nil
}

func TestLibrary_TypedMethodsBindParameters(t *testing.T) {
	exec := &recordingExecutor{}
	lib := NewLibrary(exec)
	ctx := context.Background()

	_, _ = lib.EventsWithProductsSoldAtTradeShows(ctx, "Paris")
	_, _ = lib.TradeShowSalesByCustomerType(ctx, "entreprises")
	_, _ = lib.TopRevenueTradeShows(ctx, 0)
	_, _ = lib.EventsPoweredByProductType(ctx, "portable")

	if len(exec.stmts) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(exec.stmts))
	}
	if exec.stmts[0].Params["location"] != "Paris" {
		t.Errorf("location = %v", exec.stmts[0].Params["location"])
	}
	if exec.stmts[1].Params["customer_type"] != "entreprises" {
		t.Errorf("customer_type = %v", exec.stmts[1].Params["customer_type"])
	}
	if exec.stmts[2].Params["limit"] != int64(5) {
		t.Errorf("limit = %v", exec.stmts[2].Params["limit"])
	}
	if exec.stmts[3].Name != string(QueryEventsPoweredByProductType) {
		t.Errorf("name = %s", exec.stmts[3].Name)
	}
	if len(exec.stmts[0].Lists) != 2 {
		t.Errorf("lists = %v", exec.stmts[0].Lists)
	}
}

func TestNormalizeNeo4jValue(t *testing.T) {
	date := neo4j.DateOf(time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC))
	got := normalizeNeo4jValue([]any{"a", int64(2), 1.5, nil, date})
	list, ok := got.([]any)
	if !ok || len(list) != 5 {
		t.Fatalf("got %#v", got)
	}
	if list[0] != "a" || list[1] != int64(2) || list[2] != 1.5 || list[3] != nil {
		t.Errorf("scalars changed: %#v", list)
	}
	if list[4] != "2024-10-15" {
		t.Errorf("date = %v", list[4])
	}
}

func TestLoadBatches_NodesBeforeEdges(t *testing.T) {
	ds, _, err := ReadDataset("testdata")
	if err != nil {
		t.Fatalf("ReadDataset: %v", err)
	}
	batches := loadBatches(ds)
	if len(batches) != 10 {
		t.Fatalf("expected 10 batches, got %d", len(batches))
	}
	if !strings.Contains(batches[0].query, "MERGE (p:Product") {
		t.Errorf("first batch should create products: %s", batches[0].query)
	}
	if len(batches[0].rows) != 3 {
		t.Errorf("products = %d", len(batches[0].rows))
	}
	row := batches[0].rows[0].(map[string]any)
	if row["product_id"] != "PG-U01" || row["battery_type"] != "LiFePO4" {
		t.Errorf("unexpected product row: %v", row)
	}
}
