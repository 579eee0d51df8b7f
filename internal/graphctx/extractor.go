// Package graphctx turns a question into graph context: it selects queries
// from a keyword rule table, runs them, and formats the results for a prompt.
package graphctx

import (
	"context"
	"strings"

	"github.com/hyperjump/musubi/internal/graph"
	"github.com/hyperjump/musubi/internal/models"
	"go.uber.org/zap"
)

// QueryRunner executes a query selection. *graph.Library implements it.
type QueryRunner interface {
	Execute(ctx context.Context, spec graph.Spec) ([]models.Row, error)
}

// Extractor evaluates the rule table against a question.
type Extractor struct {
	runner QueryRunner
	rules  []Rule
	logger *zap.Logger // optional; when set, logs debug events
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLogger sets a logger for debug output (rule matched, rows returned).
func WithLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// WithRules replaces the rule table.
func WithRules(rules []Rule) ExtractorOption {
	return func(e *Extractor) { e.rules = rules }
}

// NewExtractor creates an extractor running DefaultRules on runner.
func NewExtractor(runner QueryRunner, opts ...ExtractorOption) *Extractor {
	e := &Extractor{runner: runner, rules: DefaultRules}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs every matching rule in table order and returns one item per
// selection that produced rows. Selections with no rows are dropped. The first
// query error aborts the extraction.
func (e *Extractor) Extract(ctx context.Context, question string) ([]models.GraphContextItem, error) {
	q := strings.ToLower(question)
	items := []models.GraphContextItem{}
	for _, rule := range e.rules {
		if !rule.Matches(q) {
			continue
		}
		for _, sel := range rule.Select(q) {
			rows, err := e.runner.Execute(ctx, sel.Spec)
			if err != nil {
				return nil, err
			}
			if e.logger != nil {
				e.logger.Debug("graph rule evaluated",
					zap.String("rule", rule.Name),
					zap.String("query_type", sel.QueryType),
					zap.Int("rows", len(rows)))
			}
			if len(rows) == 0 {
				continue
			}
			items = append(items, models.GraphContextItem{QueryType: sel.QueryType, Results: rows})
		}
	}
	return items, nil
}
