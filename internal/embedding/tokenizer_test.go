package embedding

import (
	"reflect"
	"testing"
)

func TestHashTokenizer_Tokenize(t *testing.T) {
	tok := &HashTokenizer{}
	ids, attn, types := tok.Tokenize("Pollutec Paris", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths = %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != clsTokenID {
		t.Errorf("expected CLS, got %d", ids[0])
	}
	if ids[3] != sepTokenID {
		t.Errorf("expected SEP at 3, got %d", ids[3])
	}
	for i := 0; i < 4; i++ {
		if attn[i] != 1 {
			t.Errorf("attention[%d] = %d", i, attn[i])
		}
	}
	if attn[4] != 0 {
		t.Error("padding should be masked")
	}
}

func TestHashTokenizer_Truncates(t *testing.T) {
	ids, _, _ := (&HashTokenizer{}).Tokenize("a b c d e f g h", 4)
	if len(ids) != 4 || ids[3] != sepTokenID {
		t.Errorf("ids = %v", ids)
	}
}

func TestWords(t *testing.T) {
	got := Words("  Événements, CO2 (tonnes)! ")
	want := []string{"événements", "co2", "tonnes"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Words = %v, want %v", got, want)
	}
	if len(Words("")) != 0 {
		t.Error("empty string should have no words")
	}
}
