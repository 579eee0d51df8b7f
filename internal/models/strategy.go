package models

import "fmt"

// Strategy is the retrieval strategy chosen for a question.
type Strategy string

const (
	// StrategySimple answers from vector-retrieved passages only.
	StrategySimple Strategy = "simple"
	// StrategyMultiHop answers from vector passages plus graph query results.
	StrategyMultiHop Strategy = "multi_hop"
)

// ParseStrategy converts s to a Strategy. Returns ErrInvalidInput for unknown values.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySimple, StrategyMultiHop:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q (supported: simple, multi_hop)", ErrInvalidInput, s)
	}
}

// String implements fmt.Stringer.
func (s Strategy) String() string {
	return string(s)
}
