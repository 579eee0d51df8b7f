package models

import "encoding/json"

// GraphContextItem pairs a query label with the rows its query returned.
// Items produced by the extractor always have at least one row.
type GraphContextItem struct {
	QueryType string `json:"query_type"`
	Results   []Row  `json:"results"`
}

// Sources is the provenance attached to an answer. GraphContext holds the raw
// extractor output and is only set on the multi_hop path.
type Sources struct {
	VectorDocs   []Passage          `json:"vector_docs"`
	GraphContext []GraphContextItem `json:"graph_context"`
}

// MarshalJSON omits graph_context when it is nil and keeps it as [] when the
// multi_hop path found nothing.
func (s Sources) MarshalJSON() ([]byte, error) {
	if s.GraphContext == nil {
		return json.Marshal(struct {
			VectorDocs []Passage `json:"vector_docs"`
		}{s.VectorDocs})
	}
	type plain Sources
	return json.Marshal(plain(s))
}

// HybridQueryResult is the answer to one question together with its provenance
// and the strategy that was actually executed.
type HybridQueryResult struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  Sources  `json:"sources"`
	Strategy Strategy `json:"strategy"`
}

// RoutingExplanation is the classifier verdict for a question with a fixed rationale.
type RoutingExplanation struct {
	Question  string   `json:"question"`
	Strategy  Strategy `json:"strategy"`
	Rationale string   `json:"rationale"`
}
