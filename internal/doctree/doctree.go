package doctree

// Kind identifies the structural role of a node.
type Kind int

const (
	KindHeading Kind = iota + 1
	KindParagraph
	KindList
	KindListItem
	KindOther // code blocks, quotes, tables: kept so sibling order stays faithful
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindList:
		return "list"
	case KindListItem:
		return "list_item"
	case KindOther:
		return "other"
	}
	return "unknown"
}

// Document is the root of a parsed document: a flat sequence of top-level
// blocks in source order. Lists hold their items, nested lists flattened
// depth-first so items appear in reading order.
type Document struct {
	Title  string  // Document title (from metadata or filename)
	Blocks []*Node // Top-level blocks
}

// Node is a single block (or list item) in the document.
type Node struct {
	Kind  Kind
	Level int     // Heading level (1-6), 0 for non-headings
	Text  string  // Plain text content, soft line breaks kept as '\n'
	Items []*Node // List items, only for KindList

	parent *Node // owning list, only for KindListItem
	index  int   // position among siblings
}

// IsHeading reports whether n is a heading of the given level.
// A level of 0 matches any heading.
func (n *Node) IsHeading(level int) bool {
	return n != nil && n.Kind == KindHeading && (level == 0 || n.Level == level)
}

// Parent returns the list that owns a list item, or nil.
func (n *Node) Parent() *Node {
	return n.parent
}

// Builder assembles a Document. Converters append blocks in source order and
// Build links sibling positions.
type Builder struct {
	doc *Document
}

func NewBuilder(title string) *Builder {
	return &Builder{doc: &Document{Title: title}}
}

// Heading appends a heading block.
func (b *Builder) Heading(level int, text string) *Builder {
	b.doc.Blocks = append(b.doc.Blocks, &Node{Kind: KindHeading, Level: level, Text: text})
	return b
}

// Paragraph appends a paragraph block.
func (b *Builder) Paragraph(text string) *Builder {
	b.doc.Blocks = append(b.doc.Blocks, &Node{Kind: KindParagraph, Text: text})
	return b
}

// List appends a list block holding one item per string.
func (b *Builder) List(items ...string) *Builder {
	list := &Node{Kind: KindList}
	for _, it := range items {
		list.Items = append(list.Items, &Node{Kind: KindListItem, Text: it})
	}
	b.doc.Blocks = append(b.doc.Blocks, list)
	return b
}

// ListItem appends an item to the trailing list, opening a new list when the
// last block is not one.
func (b *Builder) ListItem(text string) *Builder {
	n := len(b.doc.Blocks)
	if n == 0 || b.doc.Blocks[n-1].Kind != KindList {
		b.doc.Blocks = append(b.doc.Blocks, &Node{Kind: KindList})
		n++
	}
	list := b.doc.Blocks[n-1]
	list.Items = append(list.Items, &Node{Kind: KindListItem, Text: text})
	return b
}

// Other appends an opaque block.
func (b *Builder) Other(text string) *Builder {
	b.doc.Blocks = append(b.doc.Blocks, &Node{Kind: KindOther, Text: text})
	return b
}

// Build links the nodes and returns the finished document. The builder must
// not be used afterwards.
func (b *Builder) Build() *Document {
	for i, n := range b.doc.Blocks {
		n.index = i
		n.parent = nil
		for j, it := range n.Items {
			it.index = j
			it.parent = n
		}
	}
	return b.doc
}
