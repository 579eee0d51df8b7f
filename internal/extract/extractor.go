// Package extract turns document files into plain-text sections ready for chunking.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Section is one independently indexed part of a document: a PDF page,
// a CSV row, a spreadsheet sheet or the whole text of a flat file.
type Section struct {
	Text     string
	Position int
}

// Result is the extracted content of one file.
type Result struct {
	// Kind is the lower-cased extension without the dot ("pdf", "csv", "txt").
	Kind     string
	Sections []Section
}

// Text joins all sections with a blank line.
func (r *Result) Text() string {
	parts := make([]string, len(r.Sections))
	for i, s := range r.Sections {
		parts[i] = s.Text
	}
	return strings.Join(parts, "\n\n")
}

// SupportedExtensions lists the extensions with a dedicated reader.
// Unknown extensions are read as plain text.
var SupportedExtensions = []string{".txt", ".md", ".json", ".csv", ".pdf", ".docx", ".odt", ".rtf", ".xlsx"}

// Extractor extracts text sections from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its sections.
func (e *Extractor) Extract(path string) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts sections from content based on ext (with the leading dot).
// Sections whose text is blank are dropped.
func (e *Extractor) ExtractBytes(content []byte, ext string) (*Result, error) {
	ext = strings.ToLower(ext)
	var (
		sections []Section
		err      error
	)
	switch ext {
	case ".pdf":
		sections, err = extractPDF(content)
	case ".csv":
		sections, err = extractCSV(content)
	case ".json":
		sections, err = extractJSON(content)
	case ".xlsx":
		sections, err = extractExcel(content)
	case ".docx":
		sections, err = single(extractDOCX(content))
	case ".odt", ".rtf":
		sections, err = single(extractWithCat(content))
	default:
		sections, err = single(extractPlain(content))
	}
	if err != nil {
		return nil, err
	}
	kind := strings.TrimPrefix(ext, ".")
	if kind == "" {
		kind = "txt"
	}
	res := &Result{Kind: kind, Sections: make([]Section, 0, len(sections))}
	for _, s := range sections {
		if strings.TrimSpace(s.Text) != "" {
			res.Sections = append(res.Sections, s)
		}
	}
	return res, nil
}

func single(text string, err error) ([]Section, error) {
	if err != nil {
		return nil, err
	}
	return []Section{{Text: text}}, nil
}
