package models

// Passage is a retrieved slice of source text with its provenance metadata.
// Metadata always carries MetaSource.
type Passage struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Source returns the passage's source identifier, or "" when unset.
func (p Passage) Source() string {
	s, _ := p.Metadata[MetaSource].(string)
	return s
}
