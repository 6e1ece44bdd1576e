package extract

import (
	"strings"

	"github.com/dgallion1/resumex/internal/doctree"
)

// extractParagraph writes the first paragraph of the section, or failing
// that the first list item, to the section key.
func extractParagraph(pc *parseContext) {
	var text string
	for _, n := range pc.section.Body {
		if n.Kind == doctree.KindParagraph {
			text = strings.TrimSpace(n.Text)
			break
		}
	}
	if text == "" {
		if lists := pc.section.Lists(); len(lists) > 0 && len(lists[0].Items) > 0 {
			text = strings.TrimSpace(lists[0].Items[0].Text)
		}
	}
	if text == "" {
		pc.log.Debug("section has no text")
		return
	}
	pc.merger.Merge(pc.spec.Key, text)
}

// extractFields maps the label:value items of the section's first list
// into the mapping at the section key. Items after a list field that carry
// no known label (a nested list, say) are appended to that field.
func extractFields(pc *parseContext) {
	lists := pc.section.Lists()
	if len(lists) == 0 {
		pc.log.Debug("section has no list")
		return
	}
	var open string
	for _, item := range lists[0].Items {
		label, value, hasSep := Split(item.Text, pc.sep)
		field, ok := "", false
		if hasSep {
			field, ok = pc.spec.Labels.Resolve(label)
		}
		if !ok {
			switch {
			case open != "":
				pc.merger.AppendField(pc.spec.Key, open, splitLines(item.Text)...)
			case !hasSep:
				pc.warn(item.Text, "missing separator")
			default:
				pc.log.Debug("skipping unmapped label", "label", label)
			}
			continue
		}
		if pc.spec.IsListField(field) {
			open = field
			pc.merger.AppendField(pc.spec.Key, field, splitLines(value)...)
			continue
		}
		open = ""
		pc.merger.SetField(pc.spec.Key, field, value)
	}
}

// splitLines returns the trimmed non-empty lines of s.
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
