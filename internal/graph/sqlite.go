package graph

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/hyperjump/musubi/internal/models"
)

const sqliteDriverName = "sqlite3_musubi_graph"

var registerDriver sync.Once

// registerSQLiteDriver registers a go-sqlite3 driver exposing the Go
// functions the SQL dialect of the query library relies on.
func registerSQLiteDriver() {
	registerDriver.Do(func() {
		sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				if err := conn.RegisterFunc("parse_reduction", ParseReduction, true); err != nil {
					return err
				}
				if err := conn.RegisterFunc("deployment_reduction", sqliteDeploymentReduction, true); err != nil {
					return err
				}
				return conn.RegisterFunc("ulower", strings.ToLower, true)
			},
		})
	})
}

// SQLiteGraph stores the property graph as node and edge tables in SQLite and
// runs the SQL dialect of the query library.
type SQLiteGraph struct {
	db *sql.DB
}

// NewSQLiteGraph opens or creates the graph database at dbPath.
// Parent directories are created if they do not exist.
func NewSQLiteGraph(dbPath string) (*SQLiteGraph, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create graph database directory: %w", err)
		}
	}
	registerSQLiteDriver()
	db, err := sql.Open(sqliteDriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(graphSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize graph schema: %w", err)
	}
	return &SQLiteGraph{db: db}, nil
}

const graphSchema = `
CREATE TABLE IF NOT EXISTS products (
	product_id TEXT PRIMARY KEY,
	name TEXT,
	category TEXT,
	continuous_power,
	peak_power,
	battery_capacity,
	battery_type TEXT,
	solar_capacity,
	total_cost,
	avg_selling_price,
	margin_percentage,
	co2_reduction,
	rental_available
);

CREATE TABLE IF NOT EXISTS battery_types (
	type TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS uses_battery (
	product_id TEXT NOT NULL,
	battery_type TEXT NOT NULL,
	PRIMARY KEY (product_id, battery_type)
);

CREATE TABLE IF NOT EXISTS trade_shows (
	event_id TEXT PRIMARY KEY,
	name TEXT,
	type TEXT,
	location TEXT,
	date TEXT,
	leads_generated,
	total_sales REAL
);

CREATE TABLE IF NOT EXISTS displayed_at (
	product_id TEXT NOT NULL,
	event_id TEXT NOT NULL,
	PRIMARY KEY (product_id, event_id)
);

CREATE TABLE IF NOT EXISTS sales (
	sale_id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL,
	customer_type TEXT,
	units INTEGER,
	total_revenue REAL
);

CREATE INDEX IF NOT EXISTS idx_sales_customer ON sales(customer_type);

CREATE TABLE IF NOT EXISTS includes_product (
	sale_id TEXT NOT NULL,
	product_id TEXT NOT NULL,
	quantity INTEGER,
	PRIMARY KEY (sale_id, product_id)
);

CREATE TABLE IF NOT EXISTS events (
	event_id TEXT PRIMARY KEY,
	name TEXT,
	type TEXT,
	location TEXT,
	date TEXT,
	attendees,
	runtime,
	fuel_saved,
	co2_reduction TEXT
);

CREATE TABLE IF NOT EXISTS deployed_at (
	product_id TEXT NOT NULL,
	event_id TEXT NOT NULL,
	quantity INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (product_id, event_id)
);

CREATE TABLE IF NOT EXISTS rd_projects (
	project_id TEXT PRIMARY KEY,
	name TEXT,
	status TEXT,
	objective TEXT,
	projected_savings
);

CREATE TABLE IF NOT EXISTS targets_product (
	project_id TEXT NOT NULL,
	product_id TEXT NOT NULL,
	PRIMARY KEY (project_id, product_id)
);
`

// tableCounts maps each label and relationship type to its table.
var (
	nodeTables = []struct{ label, table string }{
		{LabelProduct, "products"},
		{LabelBatteryType, "battery_types"},
		{LabelTradeShow, "trade_shows"},
		{LabelSale, "sales"},
		{LabelEvent, "events"},
		{LabelRDProject, "rd_projects"},
	}
	relTables = []struct{ rel, table string }{
		{RelUsesBattery, "uses_battery"},
		{RelDisplayedAt, "displayed_at"},
		{RelSoldAt, "sales"},
		{RelIncludesProduct, "includes_product"},
		{RelDeployedAt, "deployed_at"},
		{RelTargetsProduct, "targets_product"},
	}
)

// Run executes the SQL form of stmt. Fields listed in stmt.Lists are decoded
// from JSON arrays into []any.
func (g *SQLiteGraph) Run(ctx context.Context, stmt Statement) ([]models.Row, error) {
	if stmt.SQL == "" {
		return nil, fmt.Errorf("statement %s has no SQL form", stmt.Name)
	}
	args := make([]any, 0, len(stmt.Params))
	for name, v := range stmt.Params {
		args = append(args, sql.Named(name, v))
	}
	rows, err := g.db.QueryContext(ctx, stmt.SQL, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	lists := make(map[string]bool, len(stmt.Lists))
	for _, name := range stmt.Lists {
		lists[name] = true
	}

	var out []models.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if lists[cols[i]] {
				list, err := decodeList(v)
				if err != nil {
					return nil, fmt.Errorf("failed to decode %s: %w", cols[i], err)
				}
				v = list
			}
			values[i] = v
		}
		out = append(out, models.NewRow(cols, values))
	}
	return out, rows.Err()
}

func decodeList(v any) ([]any, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return []any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]any, 0, len(raw))
	for _, item := range raw {
		out = append(out, scalar(item))
	}
	return out, nil
}

// Replace clears every table and loads ds in a single transaction.
func (g *SQLiteGraph) Replace(ctx context.Context, ds *Dataset) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range []string{
		"targets_product", "rd_projects", "deployed_at", "events", "includes_product",
		"sales", "displayed_at", "trade_shows", "uses_battery", "battery_types", "products",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("failed to clear %s: %w", t, err)
		}
	}

	for _, p := range ds.Products {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO products (product_id, name, category, continuous_power, peak_power,
				battery_capacity, battery_type, solar_capacity, total_cost, avg_selling_price,
				margin_percentage, co2_reduction, rental_available)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ProductID, p.Name, p.Category, p.ContinuousPower, p.PeakPower,
			p.BatteryCapacity, p.BatteryType, p.SolarCapacity, p.TotalCost, p.AvgSellingPrice,
			p.MarginPercentage, p.CO2Reduction, p.RentalAvailable,
		); err != nil {
			return fmt.Errorf("failed to insert product %s: %w", p.ProductID, err)
		}
		if p.BatteryType != "" {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO uses_battery (product_id, battery_type) VALUES (?, ?)`,
				p.ProductID, p.BatteryType); err != nil {
				return fmt.Errorf("failed to link battery of %s: %w", p.ProductID, err)
			}
		}
	}
	for _, b := range ds.BatteryTypes() {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO battery_types (type) VALUES (?)`, b); err != nil {
			return fmt.Errorf("failed to insert battery type %s: %w", b, err)
		}
	}

	for _, t := range ds.TradeShows {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO trade_shows (event_id, name, type, location, date, leads_generated, total_sales)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.EventID, t.Name, t.Type, t.Location, t.Date, t.LeadsGenerated, t.TotalSales,
		); err != nil {
			return fmt.Errorf("failed to insert trade show %s: %w", t.EventID, err)
		}
	}
	for _, d := range ds.Displays {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO displayed_at (product_id, event_id) VALUES (?, ?)`,
			d.ProductID, d.EventID); err != nil {
			return fmt.Errorf("failed to insert display: %w", err)
		}
	}
	for _, s := range ds.Sales {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO sales (sale_id, event_id, customer_type, units, total_revenue)
			 VALUES (?, ?, ?, ?, ?)`,
			s.SaleID, s.EventID, s.CustomerType, s.Units, s.TotalRevenue,
		); err != nil {
			return fmt.Errorf("failed to insert sale %s: %w", s.SaleID, err)
		}
	}
	for _, it := range ds.SaleItems {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO includes_product (sale_id, product_id, quantity) VALUES (?, ?, ?)`,
			it.SaleID, it.ProductID, it.Quantity); err != nil {
			return fmt.Errorf("failed to insert sale item: %w", err)
		}
	}

	for _, e := range ds.Events {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO events (event_id, name, type, location, date, attendees, runtime, fuel_saved, co2_reduction)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.EventID, e.Name, e.Type, e.Location, e.Date, e.Attendees, e.Runtime, e.FuelSaved, e.CO2Reduction,
		); err != nil {
			return fmt.Errorf("failed to insert event %s: %w", e.EventID, err)
		}
	}
	for _, d := range ds.Deployments {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO deployed_at (product_id, event_id, quantity) VALUES (?, ?, ?)`,
			d.ProductID, d.EventID, d.Quantity); err != nil {
			return fmt.Errorf("failed to insert deployment: %w", err)
		}
	}

	for _, r := range ds.Projects {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO rd_projects (project_id, name, status, objective, projected_savings)
			 VALUES (?, ?, ?, ?, ?)`,
			r.ProjectID, r.Name, r.Status, r.Objective, r.ProjectedSavings,
		); err != nil {
			return fmt.Errorf("failed to insert R&D project %s: %w", r.ProjectID, err)
		}
	}
	for _, t := range ds.Targets {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO targets_product (project_id, product_id) VALUES (?, ?)`,
			t.ProjectID, t.ProductID); err != nil {
			return fmt.Errorf("failed to insert target: %w", err)
		}
	}

	return tx.Commit()
}

// Stats counts rows of the node and edge tables.
func (g *SQLiteGraph) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Nodes: map[string]int64{}, Relationships: map[string]int64{}}
	count := func(table string) (int64, error) {
		var n int64
		err := g.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
		return n, err
	}
	for _, nt := range nodeTables {
		n, err := count(nt.table)
		if err != nil {
			return nil, err
		}
		stats.Nodes[nt.label] = n
	}
	for _, rt := range relTables {
		n, err := count(rt.table)
		if err != nil {
			return nil, err
		}
		stats.Relationships[rt.rel] = n
	}
	return stats, nil
}

// Close closes the database.
func (g *SQLiteGraph) Close() error {
	return g.db.Close()
}
