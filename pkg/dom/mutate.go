package dom

import (
	"golang.org/x/net/html"
)

// GetAttribute returns the value of an attribute and whether it is present.
func GetAttribute(n *html.Node, ns, key string) (string, bool) {
	ns = attributeNamespace(ns)
	for _, a := range n.Attr {
		if a.Namespace == ns && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttribute reports whether an attribute is present.
func HasAttribute(n *html.Node, key string) bool {
	_, ok := GetAttribute(n, "", key)
	return ok
}

// SetAttribute sets an attribute, keeping its position if it already exists.
func (d *Document) SetAttribute(n *html.Node, ns, key, val string) {
	ns = attributeNamespace(ns)
	found := false
	for i := range n.Attr {
		if n.Attr[i].Namespace == ns && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			found = true
			break
		}
	}
	if !found {
		n.Attr = append(n.Attr, html.Attribute{Namespace: ns, Key: key, Val: val})
	}
	d.writes.Add(1)

	if d.observed(n) {
		d.emit(Patch{Op: PatchSetAttr, Path: d.Path(n), NS: ns, Key: key, Value: val})
	}
}

// RemoveAttribute removes an attribute. Removing an absent attribute is a
// no-op write.
func (d *Document) RemoveAttribute(n *html.Node, ns, key string) {
	ns = attributeNamespace(ns)
	for i := range n.Attr {
		if n.Attr[i].Namespace == ns && n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			break
		}
	}
	d.writes.Add(1)

	if d.observed(n) {
		d.emit(Patch{Op: PatchRemoveAttr, Path: d.Path(n), NS: ns, Key: key})
	}
}

// TextContent returns the concatenated text of n and its descendants.
func TextContent(n *html.Node) string {
	if n.Type == html.TextNode || n.Type == html.CommentNode {
		return n.Data
	}
	var out []byte
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				out = append(out, c.Data...)
			} else if c.Type == html.ElementNode {
				walk(c)
			}
		}
	}
	walk(n)
	return string(out)
}

// SetTextContent replaces the data of a text node, or all children of an
// element with a single text node.
func (d *Document) SetTextContent(n *html.Node, text string) {
	switch n.Type {
	case html.TextNode, html.CommentNode:
		n.Data = text
	default:
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		if text != "" {
			n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
		}
	}
	d.writes.Add(1)

	if d.observed(n) {
		d.emit(Patch{Op: PatchSetText, Path: d.Path(n), Value: text})
	}
}

// AppendChild moves child to the end of parent's children.
func (d *Document) AppendChild(parent, child *html.Node) {
	d.InsertBefore(parent, child, nil)
}

// InsertBefore moves child under parent, before ref. A nil ref, or a ref
// that is not a child of parent, appends.
func (d *Document) InsertBefore(parent, child, ref *html.Node) {
	if child.Parent != nil {
		d.RemoveNode(child)
	}
	if ref != nil && ref.Parent != parent {
		ref = nil
	}
	parent.InsertBefore(child, ref)
	d.writes.Add(1)

	if d.observed(parent) {
		d.emit(insertPatch(d, parent, child))
	}
}

// AppendFragment moves every child of frag to the end of parent.
func (d *Document) AppendFragment(parent, frag *html.Node) {
	for c := frag.FirstChild; c != nil; {
		next := c.NextSibling
		frag.RemoveChild(c)
		d.InsertBefore(parent, c, nil)
		c = next
	}
}

// RemoveNode detaches n from its parent. Detached nodes are left alone.
func (d *Document) RemoveNode(n *html.Node) {
	if n.Parent == nil {
		return
	}
	var p Patch
	observed := d.observed(n)
	if observed {
		p = Patch{Op: PatchRemoveNode, Path: d.Path(n)}
	}
	n.Parent.RemoveChild(n)
	d.writes.Add(1)

	if observed {
		d.emit(p)
	}
}

// Children returns the child nodes of n in order.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// ChildCount returns the number of child nodes of n.
func ChildCount(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}

// ChildAt returns the i-th child of n, or nil.
func ChildAt(n *html.Node, i int) *html.Node {
	if i < 0 {
		return nil
	}
	c := n.FirstChild
	for ; c != nil && i > 0; i-- {
		c = c.NextSibling
	}
	return c
}

func insertPatch(d *Document, parent, child *html.Node) Patch {
	p := Patch{Op: PatchInsertNode, Path: d.Path(parent), Index: childIndex(child)}
	if child.Type == html.TextNode {
		p.Text = true
		p.Value = child.Data
		return p
	}
	p.HTML = Render(child)
	return p
}
