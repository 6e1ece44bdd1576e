package parser

import "testing"

func TestDOCXHeadingLevel(t *testing.T) {
	tests := []struct {
		style string
		want  int
	}{
		{"Heading1", 1},
		{"heading 2", 2},
		{"Heading 3", 3},
		{"HEADING6", 6},
		{"Heading0", 0},
		{"Heading7", 0},
		{"HeadingX", 0},
		{"Heading10", 0},
		{"TOCHeading", 0},
		{"Title", 0},
		{"Normal", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := docxHeadingLevel(tt.style); got != tt.want {
			t.Errorf("docxHeadingLevel(%q) = %d, want %d", tt.style, got, tt.want)
		}
	}
}

func TestDOCXIsListStyle(t *testing.T) {
	tests := []struct {
		style string
		want  bool
	}{
		{"ListParagraph", true},
		{"List Bullet", true},
		{"list number 2", true},
		{"Heading1", false},
		{"Normal", false},
		{"BodyList", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := docxIsListStyle(tt.style); got != tt.want {
			t.Errorf("docxIsListStyle(%q) = %v, want %v", tt.style, got, tt.want)
		}
	}
}
