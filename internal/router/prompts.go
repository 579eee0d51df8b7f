package router

import "github.com/hyperjump/musubi/internal/models"

// HybridPrompt asks for an answer from both the passage and the graph context.
const HybridPrompt = `Tu es un assistant expert sur GreenPower Solutions et leurs produits solaires autonomes.

Tu dois répondre à la question en utilisant DEUX sources de contexte:

1. CONTEXTE VECTORIEL (descriptions détaillées, documents):
{vector_context}

2. CONTEXTE GRAPHE (relations, agrégations, connexions):
{graph_context}

Utilise prioritairement le CONTEXTE GRAPHE pour les informations relationnelles (qui, où, combien, total, etc.)
et le CONTEXTE VECTORIEL pour les descriptions détaillées et spécifications.

Si une information n'est pas présente dans les contextes, dis clairement que tu ne sais pas.
Ne fabrique pas de réponses.

QUESTION: {question}

RÉPONSE:`

// SimplePrompt restricts the answer to the retrieved passages.
const SimplePrompt = `Tu dois répondre UNIQUEMENT à partir des informations fournies dans le CONTEXTE ci-dessous.
Si une information n'est pas présente dans le CONTEXTE, dis clairement que tu ne sais pas.
Ne fabrique pas de réponses.

CONTEXTE:
{context}

QUESTION: {question}

RÉPONSE:`

// NoGraphContext replaces an empty graph context in the hybrid prompt.
const NoGraphContext = "Aucune information relationnelle trouvée."

const multiHopRationale = `Cette question nécessite un RAG HYBRIDE (recherche vectorielle + graphe) car elle implique:
- Des relations entre entités (produits, événements, salons)
- Des agrégations (total, somme, liste complète)
- Du multi-hop reasoning (suivre des chemins dans le graphe)

Le graphe va permettre de:
- Naviguer entre les nœuds liés
- Calculer des agrégations
- Trouver des patterns complexes`

const simpleRationale = `Cette question peut être traitée avec un RAG SIMPLE (recherche vectorielle uniquement) car elle demande:
- Une description ou spécification
- Des informations contenues dans les documents
- Pas de relations complexes ou agrégations

La recherche vectorielle suffit pour trouver la réponse.`

// Rationale returns the fixed explanation for a strategy.
func Rationale(s models.Strategy) string {
	if s == models.StrategyMultiHop {
		return multiHopRationale
	}
	return simpleRationale
}
