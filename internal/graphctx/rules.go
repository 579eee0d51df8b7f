package graphctx

import (
	"strings"

	"github.com/hyperjump/musubi/internal/graph"
)

// ProductIDs are the catalogue identifiers recognized in questions.
var ProductIDs = []string{"PG-U01", "PG-M01", "PG-P01", "PG-C01", "PG-M02"}

// ProductCategories are the category keywords recognized by the powered-events rule.
var ProductCategories = []string{"portable", "mobile", "compact", "ultra", "professionnel", "industriel"}

// Selection is one query chosen by a rule with the label its results carry.
type Selection struct {
	QueryType string
	Spec      graph.Spec
}

// Rule maps keyword triggers to query selections. Every trigger group must
// have at least one keyword present in the lower-cased question; Select then
// decides the concrete queries and may return none.
type Rule struct {
	Name     string
	Triggers [][]string
	Select   func(q string) []Selection
}

// Matches reports whether every trigger group hits q.
func (r Rule) Matches(q string) bool {
	for _, group := range r.Triggers {
		if !containsAny(q, group) {
			return false
		}
	}
	return true
}

func containsAny(q string, words []string) bool {
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

func one(queryType string, spec graph.Spec) []Selection {
	return []Selection{{QueryType: queryType, Spec: spec}}
}

// mentionedProducts returns the known product IDs present in q, in catalogue order.
func mentionedProducts(q string) []string {
	var ids []string
	for _, id := range ProductIDs {
		if strings.Contains(q, strings.ToLower(id)) {
			ids = append(ids, id)
		}
	}
	return ids
}

// DefaultRules is the rule table, evaluated in order.
var DefaultRules = []Rule{
	{
		Name: "events_sold_at_tradeshows",
		Triggers: [][]string{
			{"événements", "events", "déploiements"},
			{"vendus", "sold", "salon", "tradeshow", "pollutec", "paris"},
		},
		Select: func(q string) []Selection {
			params := map[string]any{}
			if strings.Contains(q, "pollutec") || strings.Contains(q, "paris") {
				params["location"] = "Paris"
			}
			return one("events_with_products_sold_at_tradeshows",
				graph.Spec{Query: graph.QueryEventsWithProductsSoldAtTradeShows, Params: params})
		},
	},
	{
		Name:     "co2_by_product",
		Triggers: [][]string{{"co2", "carbone", "émissions", "économisé"}},
		Select: func(q string) []Selection {
			var out []Selection
			for _, id := range mentionedProducts(q) {
				out = append(out, Selection{
					QueryType: "total_co2_saved_by_" + id,
					Spec:      graph.Spec{Query: graph.QueryTotalCO2SavedByProduct, Params: map[string]any{"product_id": id}},
				})
			}
			return out
		},
	},
	{
		Name:     "collectivites_sales",
		Triggers: [][]string{{"collectivités", "collectivites", "municipalités"}},
		Select: func(string) []Selection {
			return one("tradeshows_collectivites_sales", graph.Spec{
				Query:  graph.QueryTradeShowSalesByCustomerType,
				Params: map[string]any{"customer_type": "collectivites"},
			})
		},
	},
	{
		Name: "rd_for_festivals",
		Triggers: [][]string{
			{"r&d", "recherche", "développement", "projets"},
			{"festival", "événements", "coûts", "réduire"},
		},
		Select: func(string) []Selection {
			return one("rd_projects_for_festivals", graph.Spec{Query: graph.QueryRDProjectsForFestivalProducts})
		},
	},
	{
		Name:     "products_by_battery",
		Triggers: [][]string{{"batterie", "battery", "lifepo4", "tesla"}},
		Select: func(q string) []Selection {
			var battery string
			switch {
			case strings.Contains(q, "lifepo4"):
				battery = "LiFePO4"
			case strings.Contains(q, "tesla"):
				battery = "Tesla"
			default:
				return nil
			}
			return one("products_with_"+battery+"_battery", graph.Spec{
				Query:  graph.QueryProductsByBatteryType,
				Params: map[string]any{"battery_type": battery},
			})
		},
	},
	{
		Name:     "top_revenue",
		Triggers: [][]string{{"top", "meilleurs", "plus", "salons", "revenus"}},
		Select: func(string) []Selection {
			return one("top_revenue_tradeshows", graph.Spec{
				Query:  graph.QueryTopRevenueTradeShows,
				Params: map[string]any{"limit": 5},
			})
		},
	},
	{
		Name:     "product_sales",
		Triggers: [][]string{{"vendu", "vendus", "sold", "ventes"}},
		Select: func(q string) []Selection {
			var out []Selection
			for _, id := range mentionedProducts(q) {
				out = append(out, Selection{
					QueryType: "sales_of_" + id + "_across_tradeshows",
					Spec:      graph.Spec{Query: graph.QueryProductSalesAcrossTradeShows, Params: map[string]any{"product_id": id}},
				})
			}
			return out
		},
	},
	{
		Name:     "events_powered_by_category",
		Triggers: [][]string{{"alimenté", "alimentés", "powered", "alimentation"}},
		Select: func(q string) []Selection {
			var out []Selection
			for _, c := range ProductCategories {
				if strings.Contains(q, c) {
					out = append(out, Selection{
						QueryType: "events_powered_by_" + c,
						Spec:      graph.Spec{Query: graph.QueryEventsPoweredByProductType, Params: map[string]any{"category": c}},
					})
				}
			}
			return out
		},
	},
}
