package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/fr"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

const deleteBatchSize = 500

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	text := bleve.NewTextFieldMapping()
	// French analyzer: elision (l', d'), stop words and light stemming.
	text.Analyzer = fr.AnalyzerName
	text.Store = false

	docID := bleve.NewKeywordFieldMapping()

	chunk := bleve.NewDocumentMapping()
	chunk.AddFieldMappingsAt("content", text)
	chunk.AddFieldMappingsAt("title", text)
	chunk.AddFieldMappingsAt("document_id", docID)
	im.DefaultMapping = chunk
	im.DefaultAnalyzer = fr.AnalyzerName
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. When the mapping
// changes, the index directory must be removed to force a re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}
	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemoryBleveIndex creates an index that lives only in memory.
func NewMemoryBleveIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index stores entry under chunk id, replacing any previous version.
func (b *BleveIndex) Index(ctx context.Context, id string, entry Entry) error {
	entry.Title = normalizeTitle(entry.Title)
	return b.index.Index(id, entry)
}

// normalizeTitle turns file names such as "fiche_produit-pg_u01.pdf" into
// "fiche produit pg u01 pdf" (the tokenizer does not split on underscores).
func normalizeTitle(title string) string {
	return strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(title)
}

// Search runs a match query over content and title and returns up to limit hits.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	titleBoost, fuzziness := 1.0, 0
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		fuzziness = opts.Fuzziness
	}

	content := bleve.NewMatchQuery(query)
	content.SetField("content")
	title := bleve.NewMatchQuery(query)
	title.SetField("title")
	if fuzziness > 0 {
		content.SetFuzziness(fuzziness)
		title.SetFuzziness(fuzziness)
	}
	if titleBoost > 1 {
		title.SetBoost(titleBoost)
	}
	var q blevequery.Query = bleve.NewDisjunctionQuery(content, title)

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(res.Hits))
	for i, hit := range res.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes chunks by ID.
func (b *BleveIndex) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete from Bleve index: %w", err)
	}
	return nil
}

// DeleteDocument removes every chunk whose document_id is docID.
func (b *BleveIndex) DeleteDocument(ctx context.Context, docID string) error {
	for {
		q := bleve.NewTermQuery(docID)
		q.SetField("document_id")
		res, err := b.index.SearchInContext(ctx, bleve.NewSearchRequestOptions(q, deleteBatchSize, 0, false))
		if err != nil {
			return fmt.Errorf("bleve search failed: %w", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}
		ids := make([]string, len(res.Hits))
		for i, hit := range res.Hits {
			ids[i] = hit.ID
		}
		if err := b.Delete(ctx, ids...); err != nil {
			return err
		}
	}
}

// DocCount returns the number of indexed chunks.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
