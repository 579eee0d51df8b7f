// Package classifier decides whether a question needs graph traversal or
// whether semantic passage retrieval alone can answer it.
package classifier

import (
	"strings"

	"github.com/hyperjump/musubi/internal/models"
)

// relationalKeywords mark questions about relationships between entities,
// aggregations or cross-entity links.
var relationalKeywords = []string{
	"quels événements", "quels salons", "où", "qui", "liste", "lister", "tous les",
	"combien", "total", "somme", "moyenne", "maximum", "minimum",
	"économisé", "co2", "carbone",
	"vendus à", "utilisés aux", "déployés à", "présentés à",
	"projets r&d", "recherche", "développement",
	"collectivités", "entreprises", "particuliers",
	"festival", "salon", "avec", "par",
}

// descriptiveKeywords mark questions about a single entity's description or specs.
var descriptiveKeywords = []string{
	"qu'est-ce que", "c'est quoi", "décris", "describe",
	"caractéristiques", "specifications", "prix", "coût",
	"comment fonctionne", "fonctionnement",
	"garantie", "warranty", "maintenance",
}

// Classify returns StrategyMultiHop when the question matches strictly more
// relational keywords than descriptive ones, and StrategySimple otherwise
// (ties, including no match at all, fall back to simple).
func Classify(question string) models.Strategy {
	q := strings.ToLower(question)
	if score(q, relationalKeywords) > score(q, descriptiveKeywords) {
		return models.StrategyMultiHop
	}
	return models.StrategySimple
}

// score counts the keywords occurring at least once in q.
func score(q string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			n++
		}
	}
	return n
}

// RelationalKeywords returns a copy of the relational keyword table.
func RelationalKeywords() []string {
	return append([]string(nil), relationalKeywords...)
}

// DescriptiveKeywords returns a copy of the descriptive keyword table.
func DescriptiveKeywords() []string {
	return append([]string(nil), descriptiveKeywords...)
}
