package graph

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/hyperjump/musubi/internal/models"
	"go.uber.org/zap"
)

// Spec selects a query and its parameter values.
type Spec struct {
	Query  QueryName
	Params map[string]any
}

// Library binds the query definitions to an executor.
type Library struct {
	exec   Executor
	logger *zap.Logger // optional; when set, logs debug events
}

// LibraryOption configures a Library.
type LibraryOption func(*Library)

// WithLogger sets a logger for debug output (query name, row count, duration).
func WithLogger(l *zap.Logger) LibraryOption {
	return func(lib *Library) { lib.logger = l }
}

// NewLibrary creates a query library running on exec.
func NewLibrary(exec Executor, opts ...LibraryOption) *Library {
	lib := &Library{exec: exec}
	for _, opt := range opts {
		opt(lib)
	}
	return lib
}

// Bind resolves spec into a runnable statement. Unknown queries, unknown or
// mistyped parameters and missing required parameters fail with ErrInvalidInput.
func Bind(spec Spec) (Statement, error) {
	q, ok := Lookup(spec.Query)
	if !ok {
		return Statement{}, fmt.Errorf("%w: unknown query %q", models.ErrInvalidInput, spec.Query)
	}
	declared := make(map[string]struct{}, len(q.Params))
	params := make(map[string]any, len(q.Params))
	for _, p := range q.Params {
		declared[p.Name] = struct{}{}
		raw, present := spec.Params[p.Name]
		if !present || raw == nil {
			if p.Required {
				return Statement{}, fmt.Errorf("%w: %s: missing parameter %q", models.ErrInvalidInput, q.Name, p.Name)
			}
			params[p.Name] = p.Default
			continue
		}
		v, err := coerceParam(p, raw)
		if err != nil {
			return Statement{}, fmt.Errorf("%w: %s: %w", models.ErrInvalidInput, q.Name, err)
		}
		params[p.Name] = v
	}
	for name := range spec.Params {
		if _, ok := declared[name]; !ok {
			return Statement{}, fmt.Errorf("%w: %s: unknown parameter %q", models.ErrInvalidInput, q.Name, name)
		}
	}
	return Statement{
		Name:   string(q.Name),
		Cypher: q.Cypher,
		SQL:    q.SQL,
		Params: params,
		Lists:  q.Lists,
	}, nil
}

func coerceParam(p Param, raw any) (any, error) {
	switch p.Kind {
	case ParamInt:
		switch v := raw.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			if v == math.Trunc(v) {
				return int64(v), nil
			}
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n, nil
			}
		}
		return nil, fmt.Errorf("parameter %q must be an integer, got %v", p.Name, raw)
	default:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %q must be a string, got %T", p.Name, raw)
		}
		return s, nil
	}
}

// Execute binds spec and runs it. Executor failures are wrapped as
// ErrGraphQuery naming the query.
func (l *Library) Execute(ctx context.Context, spec Spec) ([]models.Row, error) {
	stmt, err := Bind(spec)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := l.exec.Run(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrGraphQuery, stmt.Name, err)
	}
	if l.logger != nil {
		l.logger.Debug("graph query executed",
			zap.String("query", stmt.Name),
			zap.Int("rows", len(rows)),
			zap.Duration("duration", time.Since(start)))
	}
	return rows, nil
}

// EventsWithProductsSoldAtTradeShows lists events that used products also sold
// at a trade show. An empty location means no filter.
func (l *Library) EventsWithProductsSoldAtTradeShows(ctx context.Context, location string) ([]models.Row, error) {
	params := map[string]any{}
	if location != "" {
		params["location"] = location
	}
	return l.Execute(ctx, Spec{Query: QueryEventsWithProductsSoldAtTradeShows, Params: params})
}

// TotalCO2SavedByProduct sums the emissions reduction over a product's deployments.
func (l *Library) TotalCO2SavedByProduct(ctx context.Context, productID string) ([]models.Row, error) {
	return l.Execute(ctx, Spec{Query: QueryTotalCO2SavedByProduct, Params: map[string]any{"product_id": productID}})
}

// TradeShowSalesByCustomerType aggregates sales to one customer type per trade show.
func (l *Library) TradeShowSalesByCustomerType(ctx context.Context, customerType string) ([]models.Row, error) {
	params := map[string]any{}
	if customerType != "" {
		params["customer_type"] = customerType
	}
	return l.Execute(ctx, Spec{Query: QueryTradeShowSalesByCustomerType, Params: params})
}

// RDProjectsForFestivalProducts lists R&D projects targeting products deployed at festivals.
func (l *Library) RDProjectsForFestivalProducts(ctx context.Context) ([]models.Row, error) {
	return l.Execute(ctx, Spec{Query: QueryRDProjectsForFestivalProducts})
}

// ProductsByBatteryType lists products whose battery type contains batteryType.
func (l *Library) ProductsByBatteryType(ctx context.Context, batteryType string) ([]models.Row, error) {
	return l.Execute(ctx, Spec{Query: QueryProductsByBatteryType, Params: map[string]any{"battery_type": batteryType}})
}

// TopRevenueTradeShows returns the limit trade shows with the highest total sales.
func (l *Library) TopRevenueTradeShows(ctx context.Context, limit int) ([]models.Row, error) {
	params := map[string]any{}
	if limit > 0 {
		params["limit"] = limit
	}
	return l.Execute(ctx, Spec{Query: QueryTopRevenueTradeShows, Params: params})
}

// ProductSalesAcrossTradeShows lists every sale of a product with its trade show.
func (l *Library) ProductSalesAcrossTradeShows(ctx context.Context, productID string) ([]models.Row, error) {
	return l.Execute(ctx, Spec{Query: QueryProductSalesAcrossTradeShows, Params: map[string]any{"product_id": productID}})
}

// EventsPoweredByProductType lists events powered by products of a category.
func (l *Library) EventsPoweredByProductType(ctx context.Context, category string) ([]models.Row, error) {
	return l.Execute(ctx, Spec{Query: QueryEventsPoweredByProductType, Params: map[string]any{"category": category}})
}
