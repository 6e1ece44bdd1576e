package doctree

// Find returns the first node in document order for which match returns true.
func (d *Document) Find(match func(*Node) bool) *Node {
	if d == nil || len(d.Blocks) == 0 {
		return nil
	}
	for n := d.Blocks[0]; n != nil; n = d.Next(n) {
		if match(n) {
			return n
		}
	}
	return nil
}

// NextSibling returns the node following n at the same depth: the next
// top-level block for blocks, the next item of the same list for items.
func (d *Document) NextSibling(n *Node) *Node {
	if n == nil {
		return nil
	}
	if n.parent != nil {
		if n.index+1 < len(n.parent.Items) {
			return n.parent.Items[n.index+1]
		}
		return nil
	}
	if n.index+1 < len(d.Blocks) && d.Blocks[n.index] == n {
		return d.Blocks[n.index+1]
	}
	return nil
}

// Next returns the node following n in document order, descending into list
// items. Returns nil at end of document.
func (d *Document) Next(n *Node) *Node {
	if n == nil {
		return nil
	}
	if n.Kind == KindList && len(n.Items) > 0 {
		return n.Items[0]
	}
	if n.parent != nil {
		if sib := d.NextSibling(n); sib != nil {
			return sib
		}
		return d.NextSibling(n.parent)
	}
	return d.NextSibling(n)
}

// Text concatenates the text of every block, one per line. Used for hashing
// and previews.
func (d *Document) Text() string {
	var out []byte
	for n := d.Find(func(*Node) bool { return true }); n != nil; n = d.Next(n) {
		if n.Text == "" {
			continue
		}
		if len(out) > 0 {
			out = append(out, '\n')
		}
		out = append(out, n.Text...)
	}
	return string(out)
}
