package graph

import "fmt"

// QueryName identifies one query of the library.
type QueryName string

const (
	QueryEventsWithProductsSoldAtTradeShows QueryName = "events_with_products_sold_at_tradeshows"
	QueryTotalCO2SavedByProduct             QueryName = "total_co2_saved_by_product"
	QueryTradeShowSalesByCustomerType       QueryName = "tradeshows_sales_by_customer_type"
	QueryRDProjectsForFestivalProducts      QueryName = "rd_projects_for_festival_products"
	QueryProductsByBatteryType              QueryName = "products_by_battery_type"
	QueryTopRevenueTradeShows               QueryName = "top_revenue_tradeshows"
	QueryProductSalesAcrossTradeShows       QueryName = "product_sales_across_tradeshows"
	QueryEventsPoweredByProductType         QueryName = "events_powered_by_product_type"
)

// ParamKind is the type a query parameter is bound as.
type ParamKind int

const (
	ParamString ParamKind = iota
	ParamInt
)

// Param declares one query parameter. Optional parameters without a default
// are bound as null.
type Param struct {
	Name     string
	Kind     ParamKind
	Required bool
	Default  any
}

// Query is a named, parameterized graph query in both dialects.
type Query struct {
	Name    QueryName
	Pattern string
	Cypher  string
	SQL     string
	Params  []Param
	Fields  []string
	Lists   []string
}

// sqlText coerces expr to TEXT so the Go SQL functions always receive a string.
func sqlText(expr string) string {
	return "CAST(COALESCE(" + expr + ", '') AS TEXT)"
}

// sqlContains is the SQL form of Cypher's toLower(a) CONTAINS toLower(b).
func sqlContains(haystack, needle string) string {
	return fmt.Sprintf("instr(ulower(%s), ulower(%s)) > 0", sqlText(haystack), sqlText(needle))
}

var queries = []*Query{
	{
		Name:    QueryEventsWithProductsSoldAtTradeShows,
		Pattern: "(Product)-[:DEPLOYED_AT]->(Event), (Product)<-[:INCLUDES_PRODUCT]-(Sale)-[:SOLD_AT]->(TradeShow)",
		Cypher: `
MATCH (p:Product)-[:DEPLOYED_AT]->(e:Event)
MATCH (p)<-[:INCLUDES_PRODUCT]-(s:Sale)-[:SOLD_AT]->(t:TradeShow)
WHERE $location IS NULL OR toLower(t.location) CONTAINS toLower($location)
WITH e, collect(DISTINCT p.name) AS products_used, collect(DISTINCT t.name) AS tradeshows
RETURN e.name AS event_name,
       e.type AS event_type,
       e.location AS event_location,
       products_used,
       tradeshows
ORDER BY event_name`,
		SQL: `
SELECT e.name AS event_name,
       e.type AS event_type,
       e.location AS event_location,
       json_group_array(DISTINCT p.name) AS products_used,
       json_group_array(DISTINCT t.name) AS tradeshows
FROM deployed_at d
JOIN products p ON p.product_id = d.product_id
JOIN events e ON e.event_id = d.event_id
JOIN includes_product ip ON ip.product_id = p.product_id
JOIN sales s ON s.sale_id = ip.sale_id
JOIN trade_shows t ON t.event_id = s.event_id
WHERE $location IS NULL OR ` + sqlContains("t.location", "$location") + `
GROUP BY e.event_id
ORDER BY e.name`,
		Params: []Param{{Name: "location", Kind: ParamString}},
		Fields: []string{"event_name", "event_type", "event_location", "products_used", "tradeshows"},
		Lists:  []string{"products_used", "tradeshows"},
	},
	{
		Name:    QueryTotalCO2SavedByProduct,
		Pattern: "(Product {product_id})-[:DEPLOYED_AT]->(Event)",
		Cypher: `
MATCH (p:Product {product_id: $product_id})-[d:DEPLOYED_AT]->(e:Event)
WITH p, e,
     CASE
       WHEN e.co2_reduction CONTAINS 'tonnes'
       THEN coalesce(toFloat(split(trim(e.co2_reduction), ' ')[0]), 0.0) * coalesce(d.quantity, 1)
       ELSE 0.0
     END AS co2_saved
RETURN p.name AS product_name,
       p.product_id AS product_id,
       sum(co2_saved) AS total_co2_saved_tonnes,
       count(e) AS num_deployments,
       collect(e.name) AS events`,
		SQL: `
SELECT p.name AS product_name,
       p.product_id AS product_id,
       SUM(deployment_reduction(` + sqlText("e.co2_reduction") + `, d.quantity)) AS total_co2_saved_tonnes,
       COUNT(e.event_id) AS num_deployments,
       json_group_array(e.name) AS events
FROM products p
JOIN deployed_at d ON d.product_id = p.product_id
JOIN events e ON e.event_id = d.event_id
WHERE p.product_id = $product_id
GROUP BY p.product_id`,
		Params: []Param{{Name: "product_id", Kind: ParamString, Required: true}},
		Fields: []string{"product_name", "product_id", "total_co2_saved_tonnes", "num_deployments", "events"},
		Lists:  []string{"events"},
	},
	// Revenue and units are summed once per sale, not once per included product.
	{
		Name:    QueryTradeShowSalesByCustomerType,
		Pattern: "(Sale {customer_type})-[:SOLD_AT]->(TradeShow), (Sale)-[:INCLUDES_PRODUCT]->(Product)",
		Cypher: `
MATCH (s:Sale {customer_type: $customer_type})-[:SOLD_AT]->(t:TradeShow)
MATCH (s)-[:INCLUDES_PRODUCT]->(p:Product)
WITH t, s, collect(DISTINCT p.name) AS sale_products
WITH t,
     sum(s.total_revenue) AS total_revenue,
     sum(s.units) AS total_units,
     collect(sale_products) AS product_lists
RETURN t.name AS tradeshow_name,
       t.location AS location,
       t.date AS date,
       total_revenue,
       total_units,
       reduce(acc = [], names IN product_lists | acc + [n IN names WHERE NOT n IN acc]) AS products_sold
ORDER BY total_revenue DESC`,
		SQL: `
SELECT t.name AS tradeshow_name,
       t.location AS location,
       t.date AS date,
       SUM(s.total_revenue) AS total_revenue,
       SUM(s.units) AS total_units,
       (SELECT json_group_array(DISTINCT p.name)
          FROM sales s2
          JOIN includes_product ip ON ip.sale_id = s2.sale_id
          JOIN products p ON p.product_id = ip.product_id
         WHERE s2.event_id = t.event_id AND s2.customer_type = $customer_type) AS products_sold
FROM sales s
JOIN trade_shows t ON t.event_id = s.event_id
WHERE s.customer_type = $customer_type
  AND EXISTS (SELECT 1 FROM includes_product ip WHERE ip.sale_id = s.sale_id)
GROUP BY t.event_id
ORDER BY total_revenue DESC`,
		Params: []Param{{Name: "customer_type", Kind: ParamString, Default: "collectivites"}},
		Fields: []string{"tradeshow_name", "location", "date", "total_revenue", "total_units", "products_sold"},
		Lists:  []string{"products_sold"},
	},
	{
		Name:    QueryRDProjectsForFestivalProducts,
		Pattern: "(RDProject)-[:TARGETS_PRODUCT]->(Product)-[:DEPLOYED_AT]->(Event {festival})",
		Cypher: `
MATCH (r:RDProject)-[:TARGETS_PRODUCT]->(p:Product)-[:DEPLOYED_AT]->(e:Event)
WHERE toLower(e.type) CONTAINS 'festival' OR toLower(e.name) CONTAINS 'festival'
WITH r, collect(DISTINCT p.name) AS target_products, collect(DISTINCT e.name) AS festivals
RETURN r.name AS rd_project_name,
       r.objective AS objective,
       r.status AS status,
       r.projected_savings AS projected_savings,
       target_products,
       festivals
ORDER BY rd_project_name`,
		SQL: `
SELECT r.name AS rd_project_name,
       r.objective AS objective,
       r.status AS status,
       r.projected_savings AS projected_savings,
       json_group_array(DISTINCT p.name) AS target_products,
       json_group_array(DISTINCT e.name) AS festivals
FROM rd_projects r
JOIN targets_product tp ON tp.project_id = r.project_id
JOIN products p ON p.product_id = tp.product_id
JOIN deployed_at d ON d.product_id = p.product_id
JOIN events e ON e.event_id = d.event_id
WHERE ` + sqlContains("e.type", "'festival'") + ` OR ` + sqlContains("e.name", "'festival'") + `
GROUP BY r.project_id
ORDER BY r.name`,
		Fields: []string{"rd_project_name", "objective", "status", "projected_savings", "target_products", "festivals"},
		Lists:  []string{"target_products", "festivals"},
	},
	{
		Name:    QueryProductsByBatteryType,
		Pattern: "(Product)-[:USES_BATTERY]->(BatteryType)",
		Cypher: `
MATCH (p:Product)-[:USES_BATTERY]->(b:BatteryType)
WHERE toLower(b.type) CONTAINS toLower($battery_type)
RETURN p.product_id AS product_id,
       p.name AS product_name,
       p.battery_capacity AS battery_capacity,
       b.type AS battery_type,
       p.total_cost AS total_cost,
       p.avg_selling_price AS price
ORDER BY p.avg_selling_price`,
		SQL: `
SELECT p.product_id AS product_id,
       p.name AS product_name,
       p.battery_capacity AS battery_capacity,
       b.type AS battery_type,
       p.total_cost AS total_cost,
       p.avg_selling_price AS price
FROM products p
JOIN uses_battery ub ON ub.product_id = p.product_id
JOIN battery_types b ON b.type = ub.battery_type
WHERE ` + sqlContains("b.type", "$battery_type") + `
ORDER BY p.avg_selling_price`,
		Params: []Param{{Name: "battery_type", Kind: ParamString, Required: true}},
		Fields: []string{"product_id", "product_name", "battery_capacity", "battery_type", "total_cost", "price"},
	},
	{
		Name:    QueryTopRevenueTradeShows,
		Pattern: "(TradeShow)",
		Cypher: `
MATCH (t:TradeShow)
RETURN t.name AS name,
       t.location AS location,
       t.date AS date,
       t.total_sales AS total_sales,
       t.leads_generated AS leads_generated
ORDER BY t.total_sales DESC
LIMIT $limit`,
		SQL: `
SELECT t.name AS name,
       t.location AS location,
       t.date AS date,
       t.total_sales AS total_sales,
       t.leads_generated AS leads_generated
FROM trade_shows t
ORDER BY t.total_sales DESC
LIMIT $limit`,
		Params: []Param{{Name: "limit", Kind: ParamInt, Default: int64(5)}},
		Fields: []string{"name", "location", "date", "total_sales", "leads_generated"},
	},
	{
		Name:    QueryProductSalesAcrossTradeShows,
		Pattern: "(Product {product_id})<-[:INCLUDES_PRODUCT]-(Sale)-[:SOLD_AT]->(TradeShow)",
		Cypher: `
MATCH (p:Product {product_id: $product_id})<-[inc:INCLUDES_PRODUCT]-(s:Sale)-[:SOLD_AT]->(t:TradeShow)
RETURN t.name AS tradeshow_name,
       t.location AS location,
       t.date AS date,
       s.customer_type AS customer_type,
       inc.quantity AS quantity,
       s.total_revenue AS sale_revenue
ORDER BY t.date DESC`,
		SQL: `
SELECT t.name AS tradeshow_name,
       t.location AS location,
       t.date AS date,
       s.customer_type AS customer_type,
       ip.quantity AS quantity,
       s.total_revenue AS sale_revenue
FROM includes_product ip
JOIN sales s ON s.sale_id = ip.sale_id
JOIN trade_shows t ON t.event_id = s.event_id
WHERE ip.product_id = $product_id
ORDER BY t.date DESC`,
		Params: []Param{{Name: "product_id", Kind: ParamString, Required: true}},
		Fields: []string{"tradeshow_name", "location", "date", "customer_type", "quantity", "sale_revenue"},
	},
	{
		Name:    QueryEventsPoweredByProductType,
		Pattern: "(Product {category})-[:DEPLOYED_AT]->(Event)",
		Cypher: `
MATCH (p:Product)-[d:DEPLOYED_AT]->(e:Event)
WHERE toLower(p.category) CONTAINS toLower($category)
WITH e, collect(p.name) AS products_used, sum(d.quantity) AS total_units
RETURN e.name AS event_name,
       e.type AS event_type,
       e.location AS location,
       e.attendees AS attendees,
       e.co2_reduction AS co2_saved,
       products_used,
       total_units
ORDER BY event_name`,
		SQL: `
SELECT e.name AS event_name,
       e.type AS event_type,
       e.location AS location,
       e.attendees AS attendees,
       e.co2_reduction AS co2_saved,
       json_group_array(p.name) AS products_used,
       SUM(d.quantity) AS total_units
FROM deployed_at d
JOIN products p ON p.product_id = d.product_id
JOIN events e ON e.event_id = d.event_id
WHERE ` + sqlContains("p.category", "$category") + `
GROUP BY e.event_id
ORDER BY e.name`,
		Params: []Param{{Name: "category", Kind: ParamString, Required: true}},
		Fields: []string{"event_name", "event_type", "location", "attendees", "co2_saved", "products_used", "total_units"},
		Lists:  []string{"products_used"},
	},
}

var queriesByName = func() map[QueryName]*Query {
	m := make(map[QueryName]*Query, len(queries))
	for _, q := range queries {
		m[q.Name] = q
	}
	return m
}()

// Queries returns the library's queries in their canonical order.
func Queries() []*Query {
	out := make([]*Query, len(queries))
	copy(out, queries)
	return out
}

// Lookup returns the query registered under name.
func Lookup(name QueryName) (*Query, bool) {
	q, ok := queriesByName[name]
	return q, ok
}
