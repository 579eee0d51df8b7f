package graphctx

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hyperjump/musubi/internal/models"
)

// Format renders context items as the text block inserted into prompts.
// Each item opens with a header naming its query type, followed by one
// "field: value" line per field and a "---" line after every row.
// No items yield "".
func Format(items []models.GraphContextItem) string {
	if len(items) == 0 {
		return ""
	}
	var parts []string
	for _, item := range items {
		if len(item.Results) == 0 {
			continue
		}
		parts = append(parts, "\n=== Résultats de la requête: "+item.QueryType+" ===\n")
		for _, row := range item.Results {
			for _, f := range row.Fields {
				parts = append(parts, f.Name+": "+FormatValue(f.Value))
			}
			parts = append(parts, "---")
		}
	}
	return strings.Join(parts, "\n")
}

// FormatValue renders one row value. Lists are joined with ", " and a
// missing value (nil) renders as "N/A", never as "None" or "<nil>".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "N/A"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case []any:
		s := make([]string, len(x))
		for i, item := range x {
			s[i] = FormatValue(item)
		}
		return strings.Join(s, ", ")
	case []string:
		return strings.Join(x, ", ")
	default:
		return fmt.Sprint(x)
	}
}

// formatFloat prints the shortest representation with at least one decimal
// digit, switching to exponent form outside [1e-4, 1e16).
func formatFloat(f float64) string {
	abs := math.Abs(f)
	switch {
	case math.IsInf(f, 0) || math.IsNaN(f):
		return strconv.FormatFloat(f, 'g', -1, 64)
	case abs >= 1e16 || (abs != 0 && abs < 1e-4):
		return strconv.FormatFloat(f, 'g', -1, 64)
	case f == math.Trunc(f):
		return strconv.FormatFloat(f, 'f', 1, 64)
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}
