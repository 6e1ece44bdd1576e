package extract

import "github.com/dgallion1/resumex/internal/doctree"

// Section is a located part of a document: its heading and every block up
// to the next heading at the same or a shallower level.
type Section struct {
	Title  string
	Anchor *doctree.Node
	Body   []*doctree.Node
}

// Locate finds the first heading of the given level whose text equals title
// exactly. Matching is case-sensitive and does not trim.
func Locate(doc *doctree.Document, title string, level int) (*Section, bool) {
	if level <= 0 {
		level = 1
	}
	anchor := doc.Find(func(n *doctree.Node) bool {
		return n.IsHeading(level) && n.Text == title
	})
	if anchor == nil {
		return nil, false
	}

	s := &Section{Title: title, Anchor: anchor}
	for n := doc.NextSibling(anchor); n != nil; n = doc.NextSibling(n) {
		if n.Kind == doctree.KindHeading && n.Level <= level {
			break
		}
		s.Body = append(s.Body, n)
	}
	return s, true
}

// Lists returns the list blocks of the section body in order.
func (s *Section) Lists() []*doctree.Node {
	var out []*doctree.Node
	for _, n := range s.Body {
		if n.Kind == doctree.KindList {
			out = append(out, n)
		}
	}
	return out
}
