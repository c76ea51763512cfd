package script

import "testing"

func TestContainsIdeograph(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"日本語", true},
		{"です", false},
		{"", false},
		{"カタカナ", false},
		{"hello", false},
		{"食べる", true},
		{"ひらがな漢", true},
		{"一", true},
		{"鿿", true},
		{"䷿", false}, // U+4DFF, one below the block
		{"ꀀ", false}, // U+A000, one above the block
		{"々", false}, // iteration mark
		{"１２３", false},
	}

	for _, tt := range tests {
		if got := ContainsIdeograph(tt.input); got != tt.expected {
			t.Errorf("ContainsIdeograph(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		policy   KanaPolicy
		expected Decision
	}{
		{"kanji with passthrough", "百葉箱", Passthrough, Lookup},
		{"kanji with drop", "百葉箱", Drop, Lookup},
		{"kana with passthrough", "です", Passthrough, Report},
		{"kana with drop", "です", Drop, Skip},
		{"latin with drop", "OCR", Drop, Skip},
		{"mixed with drop", "食べる", Drop, Lookup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text, tt.policy); got != tt.expected {
				t.Errorf("Classify() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestParseKanaPolicy(t *testing.T) {
	if p, err := ParseKanaPolicy(""); err != nil || p != Passthrough {
		t.Errorf("empty should default to passthrough, got %q %v", p, err)
	}
	if p, err := ParseKanaPolicy("Drop"); err != nil || p != Drop {
		t.Errorf("got %q %v", p, err)
	}
	if _, err := ParseKanaPolicy("ignore"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
