// Package cli formats command output for the musubi CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/hyperjump/musubi/internal/config"
	"github.com/hyperjump/musubi/internal/graph"
	"github.com/hyperjump/musubi/internal/models"
	"github.com/hyperjump/musubi/pkg/utils"
)

// OutputFormat is the format of command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates s; the empty string means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, json)", s)
	}
}

// passagePreview is the number of characters of each passage shown in text output.
const passagePreview = 200

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer with its sources in the given format.
func WriteAnswer(w io.Writer, result *models.HybridQueryResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, result)
	}
	fmt.Fprintf(w, "\nQuestion: %s\n", result.Question)
	fmt.Fprintf(w, "Strategy: %s\n\n", result.Strategy)
	fmt.Fprintf(w, "%s\n\n", strings.TrimSpace(result.Answer))

	fmt.Fprintf(w, "Sources (%d passages)\n", len(result.Sources.VectorDocs))
	for i, p := range result.Sources.VectorDocs {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%d] %s%s\n", i+1, p.Source(), passageDetails(p))
		fmt.Fprintf(w, "%s\n", utils.Truncate(p.Text, passagePreview))
	}
	if len(result.Sources.GraphContext) > 0 {
		fmt.Fprintf(w, "\nGraph context\n")
		for _, item := range result.Sources.GraphContext {
			fmt.Fprintf(w, "  %s: %d rows\n", item.QueryType, len(item.Results))
		}
	}
	fmt.Fprintln(w)
	return nil
}

func passageDetails(p models.Passage) string {
	var parts []string
	if t, ok := p.Metadata[models.MetaType].(string); ok && t != "" {
		parts = append(parts, t)
	}
	if pos, ok := p.Metadata[models.MetaPosition]; ok {
		parts = append(parts, fmt.Sprintf("position %v", pos))
	}
	if score, ok := p.Metadata[models.MetaScore].(float64); ok {
		parts = append(parts, fmt.Sprintf("score %.4f", score))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// WriteExplanation writes a routing explanation.
func WriteExplanation(w io.Writer, exp models.RoutingExplanation, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, exp)
	}
	fmt.Fprintf(w, "Question: %s\nStrategy: %s\nRationale: %s\n", exp.Question, exp.Strategy, exp.Rationale)
	return nil
}

// WriteExamples writes the example questions grouped by strategy.
func WriteExamples(w io.Writer, examples map[string][]string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, examples)
	}
	keys := make([]string, 0, len(examples))
	for k := range examples {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s:\n", k)
		for _, q := range examples[k] {
			fmt.Fprintf(w, "  - %s\n", q)
		}
	}
	return nil
}

// WriteLoadReport writes the outcome of a graph load.
func WriteLoadReport(w io.Writer, report *graph.LoadReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "Loaded %d dataset files in %s\n", len(report.Loaded), report.Elapsed.Round(1e6))
	for _, name := range report.Skipped {
		fmt.Fprintf(w, "  skipped (not found): %s\n", name)
	}
	if report.Stats != nil {
		writeStats(w, report.Stats)
	}
	return nil
}

func writeStats(w io.Writer, stats *graph.Stats) {
	writeCounts(w, "Nodes", stats.Nodes)
	writeCounts(w, "Relationships", stats.Relationships)
}

func writeCounts(w io.Writer, title string, counts map[string]int64) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-18s %d\n", k, counts[k])
	}
}

// Status is the summary printed by the status command.
type Status struct {
	Documents       int64        `json:"documents"`
	Chunks          int64        `json:"chunks"`
	VectorIndexSize int          `json:"vector_index_size"`
	DiskUsageBytes  int64        `json:"disk_usage_bytes"`
	GraphBackend    string       `json:"graph_backend"`
	Graph           *graph.Stats `json:"graph,omitempty"`
	GraphError      string       `json:"graph_error,omitempty"`
}

// WriteStatus writes index and graph statistics.
func WriteStatus(w io.Writer, s *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "Documents:         %d\n", s.Documents)
	fmt.Fprintf(w, "Chunks:            %d\n", s.Chunks)
	fmt.Fprintf(w, "Vector index size: %d\n", s.VectorIndexSize)
	fmt.Fprintf(w, "Disk usage:        %s\n", FormatBytes(s.DiskUsageBytes))
	fmt.Fprintf(w, "Graph backend:     %s\n", s.GraphBackend)
	switch {
	case s.GraphError != "":
		fmt.Fprintf(w, "Graph:             unavailable (%s)\n", s.GraphError)
	case s.Graph != nil:
		writeStats(w, s.Graph)
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// WriteChecks writes the environment report, one line per check. Missing
// required settings are red, missing optional ones yellow.
func WriteChecks(w io.Writer, checks []config.Check, ok bool) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintln(w, bold("Environment"))
	for _, c := range checks {
		mark := green("✓")
		switch {
		case c.OK:
		case c.Required:
			mark = red("✗")
		default:
			mark = yellow("-")
		}
		fmt.Fprintf(w, "  %s %-22s %s\n", mark, c.Name, c.Value)
	}
	if ok {
		fmt.Fprintln(w, green("All required settings are present."))
	} else {
		fmt.Fprintln(w, red("Some required settings are missing."))
	}
}
