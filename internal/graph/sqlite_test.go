package graph

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/musubi/internal/models"
)

func newFixtureGraph(t *testing.T) (*SQLiteGraph, *LoadReport) {
	t.Helper()
	g, err := NewSQLiteGraph(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	report, err := NewLoader(g, "testdata").Load(context.Background())
	require.NoError(t, err)
	return g, report
}

func field(t *testing.T, r models.Row, name string) any {
	t.Helper()
	v, ok := r.Get(name)
	require.True(t, ok, "missing field %q in %v", name, r.Keys())
	return v
}

func TestSQLiteGraph_LoadStats(t *testing.T) {
	_, report := newFixtureGraph(t)

	assert.ElementsMatch(t, []string{ProductsFile, EventsFile, RDFile}, report.Loaded)
	assert.Empty(t, report.Skipped)
	require.NotNil(t, report.Stats)

	assert.Equal(t, map[string]int64{
		LabelProduct:     3,
		LabelBatteryType: 2,
		LabelTradeShow:   3,
		LabelSale:        4,
		LabelEvent:       3,
		LabelRDProject:   3,
	}, report.Stats.Nodes)
	assert.Equal(t, map[string]int64{
		RelUsesBattery:     3,
		RelDisplayedAt:     3,
		RelSoldAt:          4,
		RelIncludesProduct: 5,
		RelDeployedAt:      4,
		RelTargetsProduct:  3,
	}, report.Stats.Relationships)
}

func TestSQLiteGraph_EventsWithProductsSoldAtTradeShows(t *testing.T) {
	g, _ := newFixtureGraph(t)
	lib := NewLibrary(g)
	ctx := context.Background()

	rows, err := lib.EventsWithProductsSoldAtTradeShows(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"event_name", "event_type", "event_location", "products_used", "tradeshows"}, rows[0].Keys())
	assert.Equal(t, "Festival Solidays", field(t, rows[0], "event_name"))
	assert.Equal(t, "Marathon de Lyon", field(t, rows[1], "event_name"))
	assert.Equal(t, "Rock en Seine", field(t, rows[2], "event_name"))
	assert.ElementsMatch(t, []any{"PowerGen Mobile", "PowerGen Ultra"}, field(t, rows[0], "products_used"))
	assert.ElementsMatch(t, []any{"Pollutec 2024", "Salon des Maires"}, field(t, rows[2], "tradeshows"))

	rows, err = lib.EventsWithProductsSoldAtTradeShows(ctx, "lyon")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Rock en Seine", field(t, rows[0], "event_name"))
	assert.Equal(t, []any{"Salon des Maires"}, field(t, rows[0], "tradeshows"))

	rows, err = lib.EventsWithProductsSoldAtTradeShows(ctx, "Berlin")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLiteGraph_TotalCO2SavedByProduct(t *testing.T) {
	g, _ := newFixtureGraph(t)
	lib := NewLibrary(g)
	ctx := context.Background()

	rows, err := lib.TotalCO2SavedByProduct(ctx, "PG-M01")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, []string{"product_name", "product_id", "total_co2_saved_tonnes", "num_deployments", "events"}, r.Keys())
	assert.Equal(t, "PowerGen Mobile", field(t, r, "product_name"))
	// 12.5 tonnes x2 plus an "800 kg" deployment that counts as 0.
	assert.Equal(t, 25.0, field(t, r, "total_co2_saved_tonnes"))
	assert.Equal(t, int64(2), field(t, r, "num_deployments"))
	assert.ElementsMatch(t, []any{"Festival Solidays", "Marathon de Lyon"}, field(t, r, "events"))

	rows, err = lib.TotalCO2SavedByProduct(ctx, "PG-U01")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 12.5, field(t, rows[0], "total_co2_saved_tonnes"))

	rows, err = lib.TotalCO2SavedByProduct(ctx, "PG-C01")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLiteGraph_TotalCO2SavedZeroQuantity(t *testing.T) {
	g, _ := newFixtureGraph(t)
	ctx := context.Background()
	ds := &Dataset{
		Products: []Product{{ProductID: "PG-Z01", Name: "PowerGen Zero", Category: "mobile"}},
		Events: []Event{
			{EventID: "EV-A", Name: "Salon A", CO2Reduction: "4 tonnes"},
			{EventID: "EV-B", Name: "Salon B", CO2Reduction: "12.5 tonnes"},
		},
		Deployments: []Deployment{
			{ProductID: "PG-Z01", EventID: "EV-A", Quantity: 0},
			{ProductID: "PG-Z01", EventID: "EV-B", Quantity: 2},
		},
	}
	require.NoError(t, g.Replace(ctx, ds))

	rows, err := NewLibrary(g).TotalCO2SavedByProduct(ctx, "PG-Z01")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	// The zero-quantity deployment contributes nothing.
	assert.Equal(t, 25.0, field(t, rows[0], "total_co2_saved_tonnes"))
	assert.Equal(t, int64(2), field(t, rows[0], "num_deployments"))
}

func TestSQLiteGraph_TradeShowSalesByCustomerType(t *testing.T) {
	g, _ := newFixtureGraph(t)
	lib := NewLibrary(g)

	rows, err := lib.TradeShowSalesByCustomerType(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Pollutec 2024", field(t, rows[0], "tradeshow_name"))
	// One sale with two products is summed once.
	assert.Equal(t, 26000.0, field(t, rows[0], "total_revenue"))
	assert.Equal(t, int64(4), field(t, rows[0], "total_units"))
	assert.ElementsMatch(t, []any{"PowerGen Ultra", "PowerGen Pro"}, field(t, rows[0], "products_sold"))

	assert.Equal(t, "Salon des Maires", field(t, rows[1], "tradeshow_name"))
	assert.Equal(t, 8000.0, field(t, rows[1], "total_revenue"))
	assert.Equal(t, "2024-11-20", field(t, rows[1], "date"))
}

func TestSQLiteGraph_RDProjectsForFestivalProducts(t *testing.T) {
	g, _ := newFixtureGraph(t)
	rows, err := NewLibrary(g).RDProjectsForFestivalProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Batterie nouvelle génération", field(t, rows[0], "rd_project_name"))
	assert.Equal(t, "€50,000", field(t, rows[0], "projected_savings"))
	assert.ElementsMatch(t, []any{"PowerGen Mobile", "PowerGen Ultra"}, field(t, rows[0], "target_products"))
	assert.Equal(t, []any{"Festival Solidays"}, field(t, rows[0], "festivals"))

	assert.Equal(t, "Panneaux souples", field(t, rows[1], "rd_project_name"))
	assert.Equal(t, "N/A", field(t, rows[1], "projected_savings"))
	assert.Equal(t, []any{"Rock en Seine"}, field(t, rows[1], "festivals"))
}

func TestSQLiteGraph_ProductsByBatteryType(t *testing.T) {
	g, _ := newFixtureGraph(t)
	lib := NewLibrary(g)

	rows, err := lib.ProductsByBatteryType(context.Background(), "lifepo4")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "PG-U01", field(t, rows[0], "product_id"))
	assert.Equal(t, int64(2500), field(t, rows[0], "price"))
	assert.Equal(t, "PG-P01", field(t, rows[1], "product_id"))
	assert.Equal(t, "LiFePO4", field(t, rows[1], "battery_type"))

	rows, err = lib.ProductsByBatteryType(context.Background(), "Tesla")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "PowerGen Mobile", field(t, rows[0], "product_name"))
}

func TestSQLiteGraph_TopRevenueTradeShows(t *testing.T) {
	g, _ := newFixtureGraph(t)
	lib := NewLibrary(g)

	rows, err := lib.TopRevenueTradeShows(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 911750.0, field(t, rows[0], "total_sales"))
	assert.Equal(t, 150000.0, field(t, rows[1], "total_sales"))
	assert.Equal(t, 50000.0, field(t, rows[2], "total_sales"))
	assert.Equal(t, int64(120), field(t, rows[0], "leads_generated"))

	rows, err = lib.TopRevenueTradeShows(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Pollutec 2024", field(t, rows[0], "name"))
}

func TestSQLiteGraph_ProductSalesAcrossTradeShows(t *testing.T) {
	g, _ := newFixtureGraph(t)
	lib := NewLibrary(g)

	rows, err := lib.ProductSalesAcrossTradeShows(context.Background(), "PG-P01")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Salon des Maires", field(t, rows[0], "tradeshow_name"))
	assert.Equal(t, int64(1), field(t, rows[0], "quantity"))
	assert.Equal(t, "Pollutec 2024", field(t, rows[1], "tradeshow_name"))
	assert.Equal(t, "collectivites", field(t, rows[1], "customer_type"))
	assert.Equal(t, 26000.0, field(t, rows[1], "sale_revenue"))

	// A bare ID in a sale carries no quantity and is skipped.
	rows, err = lib.ProductSalesAcrossTradeShows(context.Background(), "PG-U01")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	var types []any
	for _, r := range rows {
		types = append(types, field(t, r, "customer_type"))
	}
	assert.ElementsMatch(t, []any{"particuliers", "collectivites"}, types)
}

func TestSQLiteGraph_EventsPoweredByProductType(t *testing.T) {
	g, _ := newFixtureGraph(t)
	lib := NewLibrary(g)

	rows, err := lib.EventsPoweredByProductType(context.Background(), "mobile")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Festival Solidays", field(t, rows[0], "event_name"))
	assert.Equal(t, int64(200000), field(t, rows[0], "attendees"))
	assert.Equal(t, "12.5 tonnes", field(t, rows[0], "co2_saved"))
	assert.Equal(t, int64(2), field(t, rows[0], "total_units"))
	assert.Equal(t, []any{"PowerGen Mobile"}, field(t, rows[0], "products_used"))
	assert.Equal(t, "Marathon de Lyon", field(t, rows[1], "event_name"))
	assert.Equal(t, "N/A", field(t, rows[1], "attendees"))
}

func TestSQLiteGraph_ReplaceClearsPreviousData(t *testing.T) {
	g, _ := newFixtureGraph(t)
	ctx := context.Background()

	require.NoError(t, g.Replace(ctx, &Dataset{}))
	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	for label, n := range stats.Nodes {
		assert.Zero(t, n, label)
	}
	rows, err := NewLibrary(g).TopRevenueTradeShows(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLoader_MissingFilesAreSkipped(t *testing.T) {
	g, err := NewSQLiteGraph(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer g.Close()

	report, err := NewLoader(g, t.TempDir()).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Loaded)
	assert.ElementsMatch(t, []string{ProductsFile, EventsFile, RDFile}, report.Skipped)
	assert.Zero(t, report.Stats.Nodes[LabelProduct])
}

type failingExecutor struct{ err error }

func (f failingExecutor) Run(context.Context, Statement) ([]models.Row, error) {
	return nil, f.err
}

func TestLibrary_ExecuteWrapsExecutorErrors(t *testing.T) {
	cause := errors.New("connection refused")
	lib := NewLibrary(failingExecutor{err: cause})

	_, err := lib.TotalCO2SavedByProduct(context.Background(), "PG-M01")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrGraphQuery)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), string(QueryTotalCO2SavedByProduct))
}
