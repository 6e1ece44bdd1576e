package extract

import (
	"strings"

	"github.com/dgallion1/resumex/internal/doctree"
)

// subBlock is one entity inside a repeating section: an optional heading and
// the list items and deeper headings that follow it, in document order.
type subBlock struct {
	heading *doctree.Node
	nodes   []*doctree.Node
}

// subBlocks splits the section body at headings one level below the section
// anchor. Deeper headings stay inside the current block. Items that precede
// the first sub-heading form a leading block without one.
func subBlocks(sec *Section) []subBlock {
	level := 1
	if sec.Anchor != nil && sec.Anchor.Level > 0 {
		level = sec.Anchor.Level
	}
	var blocks []subBlock
	current := func() *subBlock {
		if len(blocks) == 0 {
			blocks = append(blocks, subBlock{})
		}
		return &blocks[len(blocks)-1]
	}
	for _, n := range sec.Body {
		switch {
		case n.Kind == doctree.KindHeading && n.Level == level+1:
			blocks = append(blocks, subBlock{heading: n})
		case n.Kind == doctree.KindHeading:
			b := current()
			b.nodes = append(b.nodes, n)
		case n.Kind == doctree.KindList:
			b := current()
			b.nodes = append(b.nodes, n.Items...)
		}
	}
	return blocks
}

// entity accumulates the fields of one repeating record.
type entity struct {
	pc       *parseContext
	fields   map[string]any
	open     string // free-text field receiving continuation lines
	resolved bool
}

func extractRepeating(pc *parseContext) {
	for i, b := range subBlocks(pc.section) {
		e := &entity{pc: pc, fields: map[string]any{}}
		if b.heading != nil {
			e.heading(b.heading.Text)
		}
		for _, n := range b.nodes {
			if n.Kind == doctree.KindHeading {
				e.subheading(n.Text)
				continue
			}
			e.line(n.Text)
		}
		if !e.resolved {
			pc.log.Debug("sub-block yielded no fields", "block", i)
			continue
		}
		pc.merger.Append(pc.spec.Key, e.fields)
	}
}

// subheading handles a heading nested below a sub-block heading. A heading
// naming a free-text label opens that field; any other heading closes the
// open field so the lines under it fall through to the overflow field.
func (e *entity) subheading(text string) {
	spec := e.pc.spec
	label := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), strings.TrimSpace(e.pc.sep)))
	if field, ok := spec.Labels.Resolve(label); ok && spec.IsFreeText(field) {
		e.open = field
		return
	}
	e.pc.log.Debug("nested heading", "heading", text)
	e.open = ""
}

func (e *entity) heading(text string) {
	spec := e.pc.spec
	if spec.HeadingField != "" {
		e.fields[spec.HeadingField] = text
	}
	re := spec.HeadingRegexp()
	if re == nil {
		return
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		e.pc.warn(text, "heading does not match pattern")
		return
	}
	for i, name := range re.SubexpNames() {
		if name == "" {
			continue
		}
		if v := strings.TrimSpace(m[i]); v != "" {
			e.fields[name] = v
			e.resolved = true
		}
	}
}

func (e *entity) line(text string) {
	spec := e.pc.spec
	label, value, hasSep := Split(text, e.pc.sep)
	if hasSep {
		if field, ok := spec.Labels.Resolve(label); ok {
			e.resolved = true
			if spec.IsFreeText(field) {
				e.open = field
				e.appendText(field, value)
			} else {
				e.fields[field] = value
				e.open = ""
			}
			return
		}
	}

	// Continuation line.
	if e.open == "" && spec.Overflow != "" {
		e.open = spec.Overflow
	}
	if e.open == "" {
		if !hasSep {
			e.pc.warn(text, "missing separator")
		} else {
			e.pc.log.Debug("skipping unmapped label", "label", label)
		}
		return
	}
	e.appendText(e.open, text)
}

func (e *entity) appendText(field, text string) {
	seq, _ := e.fields[field].([]string)
	if seq == nil {
		seq = []string{}
	}
	e.fields[field] = append(seq, splitLines(text)...)
}

// extractGrouped reads every list item in the section as one stream and
// starts a new record each time the boundary label repeats.
func extractGrouped(pc *parseContext) {
	var cur map[string]any
	flush := func() {
		if len(cur) > 0 {
			pc.merger.Append(pc.spec.Key, cur)
		}
		cur = nil
	}
	for _, list := range pc.section.Lists() {
		for _, item := range list.Items {
			label, value, ok := Split(item.Text, pc.sep)
			if !ok {
				pc.warn(item.Text, "missing separator")
				continue
			}
			field, ok := pc.spec.Labels.Resolve(label)
			if !ok {
				pc.log.Debug("skipping unmapped label", "label", label)
				continue
			}
			if field == pc.spec.Boundary && len(cur) > 0 {
				flush()
			}
			if cur == nil {
				cur = map[string]any{}
			}
			cur[field] = value
		}
	}
	flush()
}
