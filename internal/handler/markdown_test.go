package handler

import (
	"strings"
	"testing"
)

func TestRenderNotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		absent   []string
	}{
		{name: "empty", input: "   "},
		{name: "emphasis", input: "今天 *很累*", contains: []string{"<em>很累</em>"}},
		{name: "list", input: "- 拉伸\n- 深蹲", contains: []string{"<li>拉伸</li>", "<li>深蹲</li>"}},
		{
			name:     "links get nofollow",
			input:    "见 https://example.com/plan",
			contains: []string{`href="https://example.com/plan"`, `rel="nofollow`, `target="_blank"`},
		},
		{
			name:   "javascript links dropped",
			input:  "[点我](javascript:alert(1))",
			absent: []string{"javascript:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderNotes(tt.input)
			if len(tt.contains) == 0 && len(tt.absent) == 0 && got != "" {
				t.Fatalf("expected empty output, got %q", got)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Fatalf("expected %q in %q", want, got)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(got, unwanted) {
					t.Fatalf("did not expect %q in %q", unwanted, got)
				}
			}
		})
	}
}
