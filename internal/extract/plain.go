package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/lu4p/cat"
)

// extractPlain returns content as string, replacing invalid UTF-8 sequences.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "\ufffd"))
	}
	return string(content), nil
}

// extractJSON re-indents the document with two spaces, keeping non-ASCII
// characters and key order as written.
func extractJSON(content []byte) ([]Section, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(content), "", "  "); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	return []Section{{Text: buf.String()}}, nil
}

// extractCSV yields one section per data row, formatted as "header: value" lines.
func extractCSV(content []byte) ([]Section, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, []byte("\ufeff"))))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	var sections []Section
	for i := 0; ; i++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row %d: %w", i, err)
		}
		lines := make([]string, len(header))
		for j, h := range header {
			var v string
			if j < len(record) {
				v = record[j]
			}
			lines[j] = h + ": " + v
		}
		sections = append(sections, Section{Text: strings.Join(lines, "\n"), Position: i})
	}
	return sections, nil
}

// extractWithCat reads ODT and RTF documents.
func extractWithCat(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract document: %w", err)
	}
	return strings.TrimSpace(text), nil
}
