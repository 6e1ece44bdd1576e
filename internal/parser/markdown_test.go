package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/resumex/internal/doctree"
)

func kinds(doc *doctree.Document) []string {
	var out []string
	for _, b := range doc.Blocks {
		out = append(out, b.Kind.String())
	}
	return out
}

func TestMarkdownParser_ResumeStructure(t *testing.T) {
	input := `# 姓名

张三

# 工作经历

## 甲公司

- 职务：工程师
- 公司：甲公司
- 负责后端开发

## 乙公司

- 职务：架构师
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "cv.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "cv" {
		t.Errorf("expected title %q, got %q", "cv", doc.Title)
	}

	want := []string{"heading", "paragraph", "heading", "heading", "list", "heading", "list"}
	got := kinds(doc)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected blocks %v, got %v", want, got)
	}

	if doc.Blocks[0].Level != 1 || doc.Blocks[0].Text != "姓名" {
		t.Errorf("unexpected first heading: %+v", doc.Blocks[0])
	}
	if doc.Blocks[3].Level != 2 || doc.Blocks[3].Text != "甲公司" {
		t.Errorf("unexpected sub heading: %+v", doc.Blocks[3])
	}
	items := doc.Blocks[4].Items
	if len(items) != 3 {
		t.Fatalf("expected 3 list items, got %d", len(items))
	}
	if items[2].Text != "负责后端开发" {
		t.Errorf("expected item text %q, got %q", "负责后端开发", items[2].Text)
	}
}

func TestMarkdownParser_InlineMarkupStripped(t *testing.T) {
	input := "# **Personal** Info\n\n- Github：[me](https://github.com/me)\n- Blog：`https://x.dev`\n"
	doc := ParseMarkdown([]byte(input), "x.md")
	if doc.Blocks[0].Text != "Personal Info" {
		t.Errorf("expected heading text without emphasis, got %q", doc.Blocks[0].Text)
	}
	items := doc.Blocks[1].Items
	if items[0].Text != "Github：me" {
		t.Errorf("expected link label only, got %q", items[0].Text)
	}
	if items[1].Text != "Blog：https://x.dev" {
		t.Errorf("expected code span text, got %q", items[1].Text)
	}
}

func TestMarkdownParser_NestedListFlattened(t *testing.T) {
	input := `# 项目经历

- 技术栈：
  - Go
  - Redis
- 角色：负责人
`
	doc := ParseMarkdown([]byte(input), "x.md")
	if len(doc.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(doc.Blocks))
	}
	var texts []string
	for _, it := range doc.Blocks[1].Items {
		texts = append(texts, it.Text)
	}
	want := []string{"技术栈：", "Go", "Redis", "角色：负责人"}
	if strings.Join(texts, "|") != strings.Join(want, "|") {
		t.Errorf("expected items %v, got %v", want, texts)
	}
}

func TestMarkdownParser_SoftBreakKeptInItem(t *testing.T) {
	input := "- 优势：沟通\n  学习能力强\n"
	doc := ParseMarkdown([]byte(input), "x.md")
	if got := doc.Blocks[0].Items[0].Text; got != "优势：沟通\n学习能力强" {
		t.Errorf("expected soft break preserved, got %q", got)
	}
}

func TestMarkdownParser_CodeBlockIsOther(t *testing.T) {
	input := "# A\n\n```\nGET /api\n```\n\nafter\n"
	doc := ParseMarkdown([]byte(input), "x.md")
	want := []string{"heading", "other", "paragraph"}
	if got := kinds(doc); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if doc.Blocks[1].Text != "GET /api" {
		t.Errorf("expected code text, got %q", doc.Blocks[1].Text)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Blocks) != 0 {
		t.Errorf("expected 0 blocks for empty input, got %d", len(doc.Blocks))
	}
}

func TestMarkdownParser_TitleStripping(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
		{"plain.md", "plain"},
	}
	p := &MarkdownParser{}
	for _, tt := range tests {
		doc, err := p.Parse(strings.NewReader("text"), tt.filename)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if doc.Title != tt.want {
			t.Errorf("filename=%q: expected title %q, got %q", tt.filename, tt.want, doc.Title)
		}
	}
}

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		wantErr  bool
	}{
		{"cv.md", false},
		{"CV.MARKDOWN", false},
		{"cv.html", false},
		{"cv.docx", false},
		{"cv.pdf", true},
		{"cv", true},
	}
	for _, tt := range tests {
		_, err := ForFile(tt.filename)
		if (err != nil) != tt.wantErr {
			t.Errorf("ForFile(%q): err=%v, wantErr=%v", tt.filename, err, tt.wantErr)
		}
		if IsSupportedExtension(tt.filename) == tt.wantErr {
			t.Errorf("IsSupportedExtension(%q) disagrees with ForFile", tt.filename)
		}
	}
}
