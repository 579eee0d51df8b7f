// Package generation renders prompt templates and sends them to an answer generator.
package generation

import (
	"context"
	"sort"
	"strings"
)

// Generator produces an answer from a prompt template and its variables.
type Generator interface {
	Generate(ctx context.Context, template string, vars map[string]string) (string, error)
}

// Render substitutes each {name} placeholder of template with vars[name] in a
// single pass, so substituted text is never re-expanded. Unknown placeholders
// are left as is.
func Render(template string, vars map[string]string) string {
	if len(vars) == 0 {
		return template
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
