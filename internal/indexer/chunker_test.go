package indexer

import (
	"reflect"
	"testing"
)

func TestChunker_Split(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
		text          string
		want          []string
	}{
		{"windows_overlap", 3, 1, "one two three four five six seven",
			[]string{"one two three", "three four five", "five six seven"}},
		{"short_text_kept_verbatim", 10, 2, " name: Pack\nprice: 10 ", []string{"name: Pack\nprice: 10"}},
		{"zero_size_keeps_whole", 0, 0, "a b c d", []string{"a b c d"}},
		{"overlap_not_below_size", 2, 5, "a b c", []string{"a b", "b c"}},
		{"blank", 5, 1, "   \n\t  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewChunker(tt.size, tt.overlap).Split(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreprocess(t *testing.T) {
	if got := Preprocess("  a  b\n\n\t c \r\n"); got != "a b\nc" {
		t.Errorf("Preprocess() = %q", got)
	}
}
