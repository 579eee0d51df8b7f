package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func onlyText(t *testing.T, res *Result) string {
	t.Helper()
	if len(res.Sections) != 1 {
		t.Fatalf("got %d sections, want 1: %+v", len(res.Sections), res.Sections)
	}
	return res.Sections[0].Text
}

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	res, err := e.ExtractBytes([]byte("Hello world\nLine 2"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if res.Kind != "txt" {
		t.Errorf("Kind = %q", res.Kind)
	}
	if got := onlyText(t, res); got != "Hello world\nLine 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	res, err := e.ExtractBytes([]byte("hello\x80world"), ".md")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got := onlyText(t, res); got != "hello\uFFFDworld" {
		t.Errorf("got %q", got)
	}
	if res.Kind != "md" {
		t.Errorf("Kind = %q", res.Kind)
	}
}

func TestExtractBytes_blankDropped(t *testing.T) {
	res, err := NewExtractor().ExtractBytes([]byte("  \n\t"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(res.Sections) != 0 {
		t.Errorf("expected no sections, got %+v", res.Sections)
	}
}

func TestExtractBytes_json(t *testing.T) {
	content := []byte(`{"produit":"PowerGen Ultra","prix":2500,"tags":["léger"]}`)
	res, err := NewExtractor().ExtractBytes(content, ".json")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "{\n  \"produit\": \"PowerGen Ultra\",\n  \"prix\": 2500,\n  \"tags\": [\n    \"léger\"\n  ]\n}"
	if got := onlyText(t, res); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_jsonInvalid(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("{not json"), ".json"); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestExtractBytes_csv(t *testing.T) {
	content := []byte("\ufeffproduit,prix\nPG-U01,2500\nPG-M01,4500\n")
	res, err := NewExtractor().ExtractBytes(content, ".CSV")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if res.Kind != "csv" {
		t.Errorf("Kind = %q", res.Kind)
	}
	if len(res.Sections) != 2 {
		t.Fatalf("got %d sections", len(res.Sections))
	}
	if got := res.Sections[0].Text; got != "produit: PG-U01\nprix: 2500" {
		t.Errorf("row 0 = %q", got)
	}
	if res.Sections[1].Position != 1 || res.Sections[1].Text != "produit: PG-M01\nprix: 4500" {
		t.Errorf("row 1 = %+v", res.Sections[1])
	}
}

func TestExtractBytes_csvShortRow(t *testing.T) {
	res, err := NewExtractor().ExtractBytes([]byte("a,b\n1\n"), ".csv")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got := onlyText(t, res); got != "a: 1\nb: " {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_csvEmpty(t *testing.T) {
	res, err := NewExtractor().ExtractBytes(nil, ".csv")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if len(res.Sections) != 0 {
		t.Errorf("expected no sections, got %+v", res.Sections)
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	res, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got := onlyText(t, res); got != "Sheet1\nTitle\nValue 1\tValue 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_plainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}
	res, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := onlyText(t, res); got != "File content" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	if _, err := NewExtractor().Extract("/nonexistent/path/file.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestExtractBytes_unknownExtension(t *testing.T) {
	res, err := NewExtractor().ExtractBytes([]byte("raw content"), ".xyz")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got := onlyText(t, res); got != "raw content" {
		t.Errorf("got %q", got)
	}
	if res.Kind != "xyz" {
		t.Errorf("Kind = %q", res.Kind)
	}
}

func docxBody(paragraphs ...string) string {
	var b bytes.Buffer
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		b.WriteString(`<w:p w:rsidR="00A1"><w:r><w:t xml:space="preserve">` + p + `</w:t></w:r></w:p>`)
	}
	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractBytes_docx(t *testing.T) {
	content := zipOf(t, map[string]string{"word/document.xml": docxBody("Fiche produit", "PowerGen Mobile")})
	res, err := NewExtractor().ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got := onlyText(t, res); got != "Fiche produit\nPowerGen Mobile" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxCustomMainPart(t *testing.T) {
	contentTypes := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml" PartName="/word/document2.xml"/>
</Types>`
	content := zipOf(t, map[string]string{
		"[Content_Types].xml": contentTypes,
		"word/document2.xml":  docxBody("Content from document2"),
	})
	res, err := NewExtractor().ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got := onlyText(t, res); got != "Content from document2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxNotZip(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("plain"), ".docx"); err == nil {
		t.Error("expected error for non-zip docx")
	}
}

func TestResult_Text(t *testing.T) {
	r := &Result{Sections: []Section{{Text: "a"}, {Text: "b", Position: 1}}}
	if got := r.Text(); got != "a\n\nb" {
		t.Errorf("Text() = %q", got)
	}
}
