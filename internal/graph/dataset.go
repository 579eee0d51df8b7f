package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Dataset file names looked up in the data directory.
const (
	ProductsFile = "greenpower_products_enriched.json"
	EventsFile   = "greenpower_events_enriched.json"
	RDFile       = "greenpower_rd_innovations.json"
)

// CustomerTypes are the sale segments of a trade show, in load order.
var CustomerTypes = []string{"particuliers", "entreprises", "collectivites"}

// Dataset is the full content of the graph, already normalized: scalar
// properties, parsed revenues and quantities, and only edges whose endpoints exist.
type Dataset struct {
	Products    []Product
	TradeShows  []TradeShow
	Displays    []Display
	Sales       []Sale
	SaleItems   []SaleItem
	Events      []Event
	Deployments []Deployment
	Projects    []RDProject
	Targets     []Target
}

// Product node. Untyped fields keep the JSON scalar as loaded.
type Product struct {
	ProductID        string
	Name             string
	Category         string
	ContinuousPower  any
	PeakPower        any
	BatteryCapacity  any
	BatteryType      string
	SolarCapacity    any
	TotalCost        any
	AvgSellingPrice  any
	MarginPercentage any
	CO2Reduction     any
	RentalAvailable  any
}

// TradeShow node.
type TradeShow struct {
	EventID        string
	Name           string
	Type           string
	Location       string
	Date           string
	LeadsGenerated any
	TotalSales     float64
}

// Display is a Product -DISPLAYED_AT-> TradeShow edge.
type Display struct {
	ProductID string
	EventID   string
}

// Sale node, one per trade show and customer type with units sold.
type Sale struct {
	SaleID       string
	EventID      string
	CustomerType string
	Units        int64
	TotalRevenue float64
}

// SaleItem is a Sale -INCLUDES_PRODUCT-> Product edge.
type SaleItem struct {
	SaleID    string
	ProductID string
	Quantity  int64
}

// Event node (powered event).
type Event struct {
	EventID      string
	Name         string
	Type         string
	Location     string
	Date         string
	Attendees    any
	Runtime      any
	FuelSaved    any
	CO2Reduction string
}

// Deployment is a Product -DEPLOYED_AT-> Event edge.
type Deployment struct {
	ProductID string
	EventID   string
	Quantity  int64
}

// RDProject node.
type RDProject struct {
	ProjectID        string
	Name             string
	Status           string
	Objective        string
	ProjectedSavings any
}

// Target is a RDProject -TARGETS_PRODUCT-> Product edge.
type Target struct {
	ProjectID string
	ProductID string
}

// BatteryTypes returns the distinct battery types of the products, in first-seen order.
func (ds *Dataset) BatteryTypes() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range ds.Products {
		if p.BatteryType == "" {
			continue
		}
		if _, ok := seen[p.BatteryType]; ok {
			continue
		}
		seen[p.BatteryType] = struct{}{}
		out = append(out, p.BatteryType)
	}
	return out
}

// prune drops edges whose endpoints are not in the dataset.
func (ds *Dataset) prune() {
	products := make(map[string]struct{}, len(ds.Products))
	for _, p := range ds.Products {
		products[p.ProductID] = struct{}{}
	}
	shows := make(map[string]struct{}, len(ds.TradeShows))
	for _, t := range ds.TradeShows {
		shows[t.EventID] = struct{}{}
	}
	events := make(map[string]struct{}, len(ds.Events))
	for _, e := range ds.Events {
		events[e.EventID] = struct{}{}
	}
	projects := make(map[string]struct{}, len(ds.Projects))
	for _, r := range ds.Projects {
		projects[r.ProjectID] = struct{}{}
	}
	has := func(set map[string]struct{}, id string) bool {
		_, ok := set[id]
		return ok
	}

	displays := ds.Displays[:0]
	for _, d := range ds.Displays {
		if has(products, d.ProductID) && has(shows, d.EventID) {
			displays = append(displays, d)
		}
	}
	ds.Displays = displays

	items := ds.SaleItems[:0]
	for _, it := range ds.SaleItems {
		if has(products, it.ProductID) {
			items = append(items, it)
		}
	}
	ds.SaleItems = items

	deployments := ds.Deployments[:0]
	for _, d := range ds.Deployments {
		if has(products, d.ProductID) && has(events, d.EventID) {
			deployments = append(deployments, d)
		}
	}
	ds.Deployments = deployments

	targets := ds.Targets[:0]
	for _, t := range ds.Targets {
		if has(products, t.ProductID) && has(projects, t.ProjectID) {
			targets = append(targets, t)
		}
	}
	ds.Targets = targets
}

// ParseRevenue converts a revenue value such as "€911,750" to a float by
// stripping the euro sign, thousands separators and spaces. Numbers pass
// through; anything unparsable is 0.
func ParseRevenue(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		cleaned := strings.NewReplacer("€", "", ",", "", " ", "").Replace(x)
		f, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// ParseProductRef splits a product reference such as "PG-M01 x3" into the
// product ID and quantity. ok is false when the reference carries no valid quantity.
func ParseProductRef(ref string) (id string, quantity int64, ok bool) {
	parts := strings.Split(ref, " x")
	if len(parts) != 2 {
		return ref, 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return ref, 0, false
	}
	return parts[0], n, true
}

// scalar normalizes a decoded JSON value for storage as a node property:
// integral numbers become int64, other numbers float64, composite values their JSON text.
func scalar(v any) any {
	switch x := v.(type) {
	case nil, string, bool, float64, int64:
		return x
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// text renders a scalar as a string property; nil stays empty.
func text(v any) string {
	switch x := scalar(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func orDefault(v any, def any) any {
	if v == nil {
		return def
	}
	return scalar(v)
}

type productsFile struct {
	Products []struct {
		ProductID   string `json:"product_id"`
		Name        string `json:"name"`
		Category    string `json:"category"`
		PowerOutput struct {
			Continuous any `json:"continuous"`
			Peak       any `json:"peak"`
		} `json:"power_output"`
		Specifications struct {
			BatteryCapacity    any `json:"battery_capacity"`
			BatteryType        any `json:"battery_type"`
			SolarPanelCapacity any `json:"solar_panel_capacity"`
		} `json:"specifications"`
		PrivateCostBreakdown struct {
			PrivateTotalCost any `json:"private_total_cost"`
		} `json:"private_cost_breakdown"`
		Pricing struct {
			AverageSellingPrice any `json:"average_selling_price"`
			MarginPercentage    any `json:"margin_percentage"`
		} `json:"pricing"`
		CO2Reduction    any `json:"co2_reduction"`
		RentalAvailable any `json:"rental_available"`
	} `json:"products"`
}

type salesBlock struct {
	Units        json.Number `json:"units"`
	TotalRevenue any         `json:"total_revenue"`
	Products     []string    `json:"products"`
}

type eventsFile struct {
	TradeShows []struct {
		EventID   string `json:"event_id"`
		EventName string `json:"event_name"`
		Type      string `json:"type"`
		Location  string `json:"location"`
		Date      string `json:"date"`
		SalesData struct {
			LeadsGenerated any                   `json:"leads_generated"`
			TotalSales     any                   `json:"total_sales"`
			SalesClosed    map[string]salesBlock `json:"sales_closed"`
		} `json:"sales_data"`
		Participation struct {
			ModelsDisplayed []string `json:"models_displayed"`
		} `json:"greenpower_participation"`
	} `json:"trade_shows_exhibitions"`
	PoweredEvents []struct {
		EventID   string `json:"event_id"`
		EventName string `json:"event_name"`
		Type      string `json:"type"`
		Location  string `json:"location"`
		Date      string `json:"date"`
		Power     struct {
			Attendees    any      `json:"attendees"`
			Runtime      any      `json:"runtime"`
			FuelSaved    any      `json:"fuel_saved"`
			CO2Reduction any      `json:"co2_reduction"`
			ModelsUsed   []string `json:"models_used"`
		} `json:"power_deployment"`
	} `json:"powered_events"`
}

type rdFile struct {
	Projects []struct {
		ProjectID        string   `json:"project_id"`
		ProjectName      string   `json:"project_name"`
		Status           string   `json:"status"`
		Objective        string   `json:"objective"`
		ProjectedSavings any      `json:"projected_annual_savings"`
		TargetProducts   []string `json:"target_products"`
	} `json:"active_rd_projects"`
}

func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (ds *Dataset) addProducts(f *productsFile) {
	for _, p := range f.Products {
		ds.Products = append(ds.Products, Product{
			ProductID:        p.ProductID,
			Name:             p.Name,
			Category:         p.Category,
			ContinuousPower:  scalar(p.PowerOutput.Continuous),
			PeakPower:        scalar(p.PowerOutput.Peak),
			BatteryCapacity:  scalar(p.Specifications.BatteryCapacity),
			BatteryType:      text(p.Specifications.BatteryType),
			SolarCapacity:    scalar(p.Specifications.SolarPanelCapacity),
			TotalCost:        scalar(p.PrivateCostBreakdown.PrivateTotalCost),
			AvgSellingPrice:  scalar(p.Pricing.AverageSellingPrice),
			MarginPercentage: scalar(p.Pricing.MarginPercentage),
			CO2Reduction:     scalar(p.CO2Reduction),
			RentalAvailable:  scalar(p.RentalAvailable),
		})
	}
}

func (ds *Dataset) addEvents(f *eventsFile) {
	for _, t := range f.TradeShows {
		ds.TradeShows = append(ds.TradeShows, TradeShow{
			EventID:        t.EventID,
			Name:           t.EventName,
			Type:           t.Type,
			Location:       t.Location,
			Date:           t.Date,
			LeadsGenerated: scalar(t.SalesData.LeadsGenerated),
			TotalSales:     ParseRevenue(t.SalesData.TotalSales),
		})
		for _, id := range t.Participation.ModelsDisplayed {
			ds.Displays = append(ds.Displays, Display{ProductID: id, EventID: t.EventID})
		}
		for _, customerType := range CustomerTypes {
			block, ok := t.SalesData.SalesClosed[customerType]
			if !ok {
				continue
			}
			units, err := block.Units.Int64()
			if err != nil || units <= 0 {
				continue
			}
			saleID := t.EventID + "_" + customerType
			ds.Sales = append(ds.Sales, Sale{
				SaleID:       saleID,
				EventID:      t.EventID,
				CustomerType: customerType,
				Units:        units,
				TotalRevenue: ParseRevenue(block.TotalRevenue),
			})
			for _, ref := range block.Products {
				id, qty, ok := ParseProductRef(ref)
				if !ok {
					continue
				}
				ds.SaleItems = append(ds.SaleItems, SaleItem{SaleID: saleID, ProductID: id, Quantity: qty})
			}
		}
	}
	for _, e := range f.PoweredEvents {
		ds.Events = append(ds.Events, Event{
			EventID:      e.EventID,
			Name:         e.EventName,
			Type:         e.Type,
			Location:     e.Location,
			Date:         e.Date,
			Attendees:    orDefault(e.Power.Attendees, "N/A"),
			Runtime:      scalar(e.Power.Runtime),
			FuelSaved:    scalar(e.Power.FuelSaved),
			CO2Reduction: text(e.Power.CO2Reduction),
		})
		for _, ref := range e.Power.ModelsUsed {
			id, qty, ok := ParseProductRef(ref)
			if !ok {
				id, qty = ref, 1
			}
			ds.Deployments = append(ds.Deployments, Deployment{ProductID: id, EventID: e.EventID, Quantity: qty})
		}
	}
}

func (ds *Dataset) addProjects(f *rdFile) {
	for _, r := range f.Projects {
		ds.Projects = append(ds.Projects, RDProject{
			ProjectID:        r.ProjectID,
			Name:             r.ProjectName,
			Status:           r.Status,
			Objective:        r.Objective,
			ProjectedSavings: orDefault(r.ProjectedSavings, "N/A"),
		})
		for _, id := range r.TargetProducts {
			ds.Targets = append(ds.Targets, Target{ProjectID: r.ProjectID, ProductID: id})
		}
	}
}
