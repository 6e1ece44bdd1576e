package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/resumex/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseMarkdown(src, filename), nil
}

// ParseMarkdown converts Markdown source into a Document. It never fails:
// goldmark accepts any input.
func ParseMarkdown(src []byte, filename string) *doctree.Document {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(src))

	b := doctree.NewBuilder(strings.TrimSuffix(strings.TrimSuffix(filename, ".md"), ".markdown"))

	// Only top-level blocks become document blocks; structure below a list
	// is flattened into its items.
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			b.Heading(node.Level, inlineText(node, src))
		case *ast.Paragraph:
			if t := inlineText(node, src); t != "" {
				b.Paragraph(t)
			}
		case *ast.List:
			b.List(listItems(node, src)...)
		case *ast.ThematicBreak:
			// Horizontal rules carry no content.
		default:
			if t := blockText(n, src); t != "" {
				b.Other(t)
			}
		}
	}
	return b.Build()
}

// listItems returns the text of every item of list, nested lists flattened
// depth-first after their parent item.
func listItems(list *ast.List, src []byte) []string {
	var items []string
	for c := list.FirstChild(); c != nil; c = c.NextSibling() {
		li, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		var own []string
		var nested []string
		for gc := li.FirstChild(); gc != nil; gc = gc.NextSibling() {
			if sub, ok := gc.(*ast.List); ok {
				nested = append(nested, listItems(sub, src)...)
				continue
			}
			if t := blockText(gc, src); t != "" {
				own = append(own, t)
			}
		}
		items = append(items, strings.Join(own, "\n"))
		items = append(items, nested...)
	}
	return items
}

// blockText gets the text of a block: inline content for text blocks, raw
// lines for code and similar leaf blocks.
func blockText(n ast.Node, src []byte) string {
	switch n.(type) {
	case *ast.Paragraph, *ast.TextBlock, *ast.Heading:
		return inlineText(n, src)
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
		var buf bytes.Buffer
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := blockText(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// inlineText concatenates the inline descendants of n.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	writeInline(&buf, n, src)
	return strings.TrimSpace(buf.String())
}

func writeInline(buf *bytes.Buffer, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.AutoLink:
			buf.Write(t.Label(src))
		case *ast.RawHTML:
			// Inline tags are markup, not content.
		default:
			writeInline(buf, c, src)
		}
	}
}
