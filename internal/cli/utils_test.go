package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/hyperjump/musubi/internal/config"
	"github.com/hyperjump/musubi/internal/graph"
	"github.com/hyperjump/musubi/internal/models"
)

func sampleResult() *models.HybridQueryResult {
	return &models.HybridQueryResult{
		ID:       "r1",
		Question: "Quel est le CO2 total économisé par le produit PG-M01?",
		Answer:   "25 tonnes.",
		Strategy: models.StrategyMultiHop,
		Sources: models.Sources{
			VectorDocs: []models.Passage{{
				Text: "Le PG-M01 est un générateur solaire mobile.",
				Metadata: map[string]interface{}{
					models.MetaSource: "/docs/catalogue.pdf", models.MetaType: "pdf",
					models.MetaPosition: 2, models.MetaScore: 0.87,
				},
			}},
			GraphContext: []models.GraphContextItem{{
				QueryType: "Impact CO2 du produit PG-M01",
				Results:   []models.Row{models.NewRow([]string{"total_co2_saved_tonnes"}, []any{25.0})},
			}},
		},
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "JSON": OutputJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteAnswer_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, sampleResult(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Strategy: multi_hop",
		"25 tonnes.",
		"[1] /docs/catalogue.pdf (pdf, position 2, score 0.8700)",
		"Impact CO2 du produit PG-M01: 1 rows",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, sampleResult(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.HybridQueryResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Strategy != models.StrategyMultiHop || len(decoded.Sources.GraphContext) != 1 {
		t.Errorf("unexpected decoded result: %+v", decoded)
	}
}

func TestWriteExamples(t *testing.T) {
	var buf bytes.Buffer
	examples := map[string][]string{"simple": {"A?"}, "multi_hop": {"B?"}}
	if err := WriteExamples(&buf, examples, OutputText); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "multi_hop:\n  - B?\nsimple:\n  - A?\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestWriteLoadReport(t *testing.T) {
	var buf bytes.Buffer
	report := &graph.LoadReport{
		Loaded:  []string{graph.ProductsFile},
		Skipped: []string{graph.RDFile},
		Elapsed: 1500 * time.Millisecond,
		Stats:   &graph.Stats{Nodes: map[string]int64{"Product": 4}, Relationships: map[string]int64{"SOLD_AT": 2}},
	}
	if err := WriteLoadReport(&buf, report, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Loaded 1 dataset files in 1.5s", "skipped (not found): " + graph.RDFile, "Product", "SOLD_AT"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{0: "0 B", 1023: "1023 B", 1024: "1.0 KiB", 5 << 20: "5.0 MiB"}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestWriteChecks(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	WriteChecks(&buf, []config.Check{
		{Name: "MISTRAL_API_KEY", Value: "abcdefghij...", OK: true, Required: true},
		{Name: "NEO4J_PASSWORD", Value: "MISSING", Required: true},
		{Name: "NEO4J_URI", Value: "MISSING"},
	}, false)
	out := buf.String()
	for _, want := range []string{"✓ MISTRAL_API_KEY", "✗ NEO4J_PASSWORD", "- NEO4J_URI", "Some required settings are missing."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
