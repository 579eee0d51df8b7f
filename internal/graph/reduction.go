package graph

import (
	"strconv"
	"strings"
)

// reductionUnit is the only unit the reduction parser understands.
const reductionUnit = "tonnes"

// ParseReduction parses an emissions-reduction string such as "12.5 tonnes".
// When s contains "tonnes", the first whitespace-separated token is parsed as a
// float; any other format, or a first token that is not a number, yields 0.
// Strings like "800 kg" or "1.2 t" therefore count as 0.
func ParseReduction(s string) float64 {
	if !strings.Contains(s, reductionUnit) {
		return 0
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return v
}

// DeploymentReduction returns the reduction contributed by one deployment:
// the parsed reduction times the deployed quantity. A missing quantity counts
// as 1; an explicit 0 contributes nothing.
func DeploymentReduction(reduction string, quantity *int64) float64 {
	q := int64(1)
	if quantity != nil {
		q = *quantity
	}
	return ParseReduction(reduction) * float64(q)
}

// sqliteDeploymentReduction adapts DeploymentReduction to SQLite values, where
// a NULL quantity arrives as nil.
func sqliteDeploymentReduction(reduction string, quantity any) float64 {
	switch q := quantity.(type) {
	case int64:
		return DeploymentReduction(reduction, &q)
	case float64:
		n := int64(q)
		return DeploymentReduction(reduction, &n)
	default:
		return DeploymentReduction(reduction, nil)
	}
}
