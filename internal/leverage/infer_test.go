package leverage

import (
	"reflect"
	"testing"
)

func TestInferCapabilities(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"caching keywords",
			"A deterministic caching layer with prompt memoization",
			[]string{"caching"},
		},
		{
			"multiple labels",
			"Sublinear solver exposed over a REST API",
			[]string{"solver", "O(log n)", "API"},
		},
		{
			"mcp",
			"Implements the Model Context Protocol",
			[]string{"MCP"},
		},
		{
			"no match falls back",
			"A collection of shell aliases",
			[]string{"general purpose"},
		},
		{
			"case insensitive",
			"FAST CACHE FOR EVERYTHING",
			[]string{"caching"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferCapabilities(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("InferCapabilities(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestInferCapabilities_Deterministic(t *testing.T) {
	text := "sublinear cache solver with neural model support over graphql api"
	first := InferCapabilities(text)
	for i := 0; i < 10; i++ {
		if got := InferCapabilities(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, got, first)
		}
	}
}

func TestInferComplexity(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"sublinear", "TRUE O(log n) matrix solver", "O(log n)", true},
		{"logarithmic word", "logarithmic lookup structure", "O(log n)", true},
		{"linear", "simple linear time scan", "O(n)", true},
		{"quadratic", "naive quadratic matcher", "O(n²)", true},
		{"constant", "constant time hash lookup", "O(1)", true},
		{"first match wins", "sublinear index over a linear time fallback", "O(log n)", true},
		{"no match", "a web framework", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := InferComplexity(tt.text)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("InferComplexity(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
