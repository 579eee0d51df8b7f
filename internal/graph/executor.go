// Package graph provides the parameterized graph query library over the
// GreenPower property graph (products, trade shows, sales, powered events,
// R&D projects) and the executors that run it.
package graph

import (
	"context"

	"github.com/hyperjump/musubi/internal/models"
)

// Statement is one query ready to run: the same query in both dialects, its
// bound parameters, and the result fields that hold collected lists.
type Statement struct {
	Name   string
	Cypher string
	SQL    string
	Params map[string]any
	Lists  []string
}

// Executor runs a statement against a property graph and returns its rows in
// the order the query produced them.
type Executor interface {
	Run(ctx context.Context, stmt Statement) ([]models.Row, error)
}

// Store is a graph backend: it executes queries and can be (re)loaded from a dataset.
type Store interface {
	Executor
	// Replace clears the graph and loads ds into it.
	Replace(ctx context.Context, ds *Dataset) error
	// Stats counts nodes per label and relationships per type.
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Stats holds node counts per label and relationship counts per type.
type Stats struct {
	Nodes         map[string]int64 `json:"nodes"`
	Relationships map[string]int64 `json:"relationships"`
}

// Node labels and relationship types of the graph.
const (
	LabelProduct     = "Product"
	LabelBatteryType = "BatteryType"
	LabelTradeShow   = "TradeShow"
	LabelSale        = "Sale"
	LabelEvent       = "Event"
	LabelRDProject   = "RDProject"

	RelUsesBattery     = "USES_BATTERY"
	RelDisplayedAt     = "DISPLAYED_AT"
	RelSoldAt          = "SOLD_AT"
	RelIncludesProduct = "INCLUDES_PRODUCT"
	RelDeployedAt      = "DEPLOYED_AT"
	RelTargetsProduct  = "TARGETS_PRODUCT"
)
