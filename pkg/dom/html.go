package dom

import (
	"bytes"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Render serializes a node and its subtree. Document and fragment nodes
// serialize their children.
func Render(n *html.Node) string {
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}

// RenderChildren serializes the children of n (its inner HTML).
func RenderChildren(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// ParseFragment parses HTML in the context of a <body> element and returns
// the top-level nodes, detached.
func ParseFragment(s string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	return html.ParseFragment(strings.NewReader(s), ctx)
}

// ParseElement parses HTML expected to contain a single top-level element.
// Surrounding whitespace text is ignored.
func ParseElement(s string) (*html.Node, error) {
	nodes, err := ParseFragment(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n, nil
		}
	}
	return nil, ErrNoElement
}

// Compile parses a CSS selector.
func Compile(selector string) (cascadia.Selector, error) {
	return cascadia.Compile(selector)
}

// Matches reports whether n matches a compiled selector.
func Matches(sel cascadia.Selector, n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && sel.Match(n)
}

// Query returns the first element under root (root included) matching
// selector, or nil.
func Query(root *html.Node, selector string) (*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, err
	}
	if Matches(sel, root) {
		return root, nil
	}
	return sel.MatchFirst(root), nil
}
