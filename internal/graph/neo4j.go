package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/hyperjump/musubi/internal/models"
)

// Neo4jConfig holds the connection settings of a Neo4j server.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Neo4jGraph runs the Cypher dialect of the query library on a Neo4j server.
type Neo4jGraph struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jGraph connects to the server described by cfg and verifies connectivity.
func NewNeo4jGraph(ctx context.Context, cfg Neo4jConfig) (*Neo4jGraph, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j uri is required")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", cfg.URI, err)
	}
	return &Neo4jGraph{driver: driver, database: cfg.Database}, nil
}

// Run executes the Cypher form of stmt with reader routing.
func (g *Neo4jGraph) Run(ctx context.Context, stmt Statement) ([]models.Row, error) {
	if stmt.Cypher == "" {
		return nil, fmt.Errorf("statement %s has no Cypher form", stmt.Name)
	}
	result, err := neo4j.ExecuteQuery(ctx, g.driver, stmt.Cypher, stmt.Params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, err
	}
	rows := make([]models.Row, 0, len(result.Records))
	for _, record := range result.Records {
		values := make([]any, len(record.Values))
		for i, v := range record.Values {
			values[i] = normalizeNeo4jValue(v)
		}
		rows = append(rows, models.NewRow(record.Keys, values))
	}
	return rows, nil
}

// normalizeNeo4jValue maps driver values onto the row value domain:
// scalars and lists pass through, temporal and other values become strings.
func normalizeNeo4jValue(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int64, float64:
		return x
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalizeNeo4jValue(item)
		}
		return out
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

var neo4jIndexes = []string{
	"CREATE INDEX product_id IF NOT EXISTS FOR (p:Product) ON (p.product_id)",
	"CREATE INDEX event_id IF NOT EXISTS FOR (e:Event) ON (e.event_id)",
	"CREATE INDEX trade_show_id IF NOT EXISTS FOR (t:TradeShow) ON (t.event_id)",
	"CREATE INDEX rd_project_id IF NOT EXISTS FOR (r:RDProject) ON (r.project_id)",
	"CREATE INDEX sale_customer IF NOT EXISTS FOR (s:Sale) ON (s.customer_type)",
}

type cypherBatch struct {
	query string
	rows  []any
}

// loadBatches turns ds into UNWIND batches, nodes before the edges that reference them.
func loadBatches(ds *Dataset) []cypherBatch {
	var products, batteries, shows, displays, sales, items, events, deployments, projects, targets []any
	for _, p := range ds.Products {
		products = append(products, map[string]any{
			"product_id":        p.ProductID,
			"name":              p.Name,
			"category":          p.Category,
			"continuous_power":  p.ContinuousPower,
			"peak_power":        p.PeakPower,
			"battery_capacity":  p.BatteryCapacity,
			"battery_type":      p.BatteryType,
			"solar_capacity":    p.SolarCapacity,
			"total_cost":        p.TotalCost,
			"avg_selling_price": p.AvgSellingPrice,
			"margin_percentage": p.MarginPercentage,
			"co2_reduction":     p.CO2Reduction,
			"rental_available":  p.RentalAvailable,
		})
		if p.BatteryType != "" {
			batteries = append(batteries, map[string]any{"product_id": p.ProductID, "battery_type": p.BatteryType})
		}
	}
	for _, t := range ds.TradeShows {
		shows = append(shows, map[string]any{
			"event_id":        t.EventID,
			"name":            t.Name,
			"type":            t.Type,
			"location":        t.Location,
			"date":            t.Date,
			"leads_generated": t.LeadsGenerated,
			"total_sales":     t.TotalSales,
		})
	}
	for _, d := range ds.Displays {
		displays = append(displays, map[string]any{"product_id": d.ProductID, "event_id": d.EventID})
	}
	for _, s := range ds.Sales {
		sales = append(sales, map[string]any{
			"sale_id":       s.SaleID,
			"event_id":      s.EventID,
			"customer_type": s.CustomerType,
			"units":         s.Units,
			"total_revenue": s.TotalRevenue,
		})
	}
	for _, it := range ds.SaleItems {
		items = append(items, map[string]any{"sale_id": it.SaleID, "product_id": it.ProductID, "quantity": it.Quantity})
	}
	for _, e := range ds.Events {
		events = append(events, map[string]any{
			"event_id":      e.EventID,
			"name":          e.Name,
			"type":          e.Type,
			"location":      e.Location,
			"date":          e.Date,
			"attendees":     e.Attendees,
			"runtime":       e.Runtime,
			"fuel_saved":    e.FuelSaved,
			"co2_reduction": e.CO2Reduction,
		})
	}
	for _, d := range ds.Deployments {
		deployments = append(deployments, map[string]any{"product_id": d.ProductID, "event_id": d.EventID, "quantity": d.Quantity})
	}
	for _, r := range ds.Projects {
		projects = append(projects, map[string]any{
			"project_id":        r.ProjectID,
			"name":              r.Name,
			"status":            r.Status,
			"objective":         r.Objective,
			"projected_savings": r.ProjectedSavings,
		})
	}
	for _, t := range ds.Targets {
		targets = append(targets, map[string]any{"project_id": t.ProjectID, "product_id": t.ProductID})
	}

	return []cypherBatch{
		{`UNWIND $rows AS row MERGE (p:Product {product_id: row.product_id}) SET p += row`, products},
		{`UNWIND $rows AS row
		  MERGE (b:BatteryType {type: row.battery_type})
		  WITH b, row
		  MATCH (p:Product {product_id: row.product_id})
		  MERGE (p)-[:USES_BATTERY]->(b)`, batteries},
		{`UNWIND $rows AS row MERGE (t:TradeShow {event_id: row.event_id}) SET t += row`, shows},
		{`UNWIND $rows AS row
		  MATCH (t:TradeShow {event_id: row.event_id})
		  MATCH (p:Product {product_id: row.product_id})
		  MERGE (p)-[:DISPLAYED_AT]->(t)`, displays},
		{`UNWIND $rows AS row
		  MERGE (s:Sale {sale_id: row.sale_id})
		  SET s.customer_type = row.customer_type, s.units = row.units, s.total_revenue = row.total_revenue
		  WITH s, row
		  MATCH (t:TradeShow {event_id: row.event_id})
		  MERGE (s)-[:SOLD_AT]->(t)`, sales},
		{`UNWIND $rows AS row
		  MATCH (s:Sale {sale_id: row.sale_id})
		  MATCH (p:Product {product_id: row.product_id})
		  MERGE (s)-[r:INCLUDES_PRODUCT]->(p)
		  SET r.quantity = row.quantity`, items},
		{`UNWIND $rows AS row MERGE (e:Event {event_id: row.event_id}) SET e += row`, events},
		{`UNWIND $rows AS row
		  MATCH (e:Event {event_id: row.event_id})
		  MATCH (p:Product {product_id: row.product_id})
		  MERGE (p)-[r:DEPLOYED_AT]->(e)
		  SET r.quantity = row.quantity`, deployments},
		{`UNWIND $rows AS row MERGE (r:RDProject {project_id: row.project_id}) SET r += row`, projects},
		{`UNWIND $rows AS row
		  MATCH (r:RDProject {project_id: row.project_id})
		  MATCH (p:Product {product_id: row.product_id})
		  MERGE (r)-[:TARGETS_PRODUCT]->(p)`, targets},
	}
}

// Replace deletes every node, ensures the lookup indexes and loads ds in one
// write transaction.
func (g *Neo4jGraph) Replace(ctx context.Context, ds *Dataset) error {
	for _, q := range neo4jIndexes {
		if _, err := neo4j.ExecuteQuery(ctx, g.driver, q, nil, neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(g.database)); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: g.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	batches := loadBatches(ds)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "MATCH (n) DETACH DELETE n", nil)
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		for _, b := range batches {
			if len(b.rows) == 0 {
				continue
			}
			res, err := tx.Run(ctx, b.query, map[string]any{"rows": b.rows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to load graph into neo4j: %w", err)
	}
	return nil
}

// Stats counts nodes per label and relationships per type. Known labels and
// types are always present, zero when absent.
func (g *Neo4jGraph) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Nodes: map[string]int64{}, Relationships: map[string]int64{}}
	for _, nt := range nodeTables {
		stats.Nodes[nt.label] = 0
	}
	for _, rt := range relTables {
		stats.Relationships[rt.rel] = 0
	}

	count := func(query string, into map[string]int64) error {
		result, err := neo4j.ExecuteQuery(ctx, g.driver, query, nil, neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(g.database), neo4j.ExecuteQueryWithReadersRouting())
		if err != nil {
			return err
		}
		for _, record := range result.Records {
			name, _, err := neo4j.GetRecordValue[string](record, "name")
			if err != nil {
				return err
			}
			n, _, err := neo4j.GetRecordValue[int64](record, "count")
			if err != nil {
				return err
			}
			into[name] = n
		}
		return nil
	}
	if err := count("MATCH (n) UNWIND labels(n) AS name RETURN name, count(*) AS count", stats.Nodes); err != nil {
		return nil, fmt.Errorf("failed to count nodes: %w", err)
	}
	if err := count("MATCH ()-[r]->() RETURN type(r) AS name, count(r) AS count", stats.Relationships); err != nil {
		return nil, fmt.Errorf("failed to count relationships: %w", err)
	}
	return stats, nil
}

// Close closes the driver.
func (g *Neo4jGraph) Close() error {
	return g.driver.Close(context.Background())
}
