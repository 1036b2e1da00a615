package dom

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync/atomic"

	"github.com/vango-dev/vtemplate/pkg/emitter"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Namespace URIs accepted by CreateElement and SetAttribute.
const (
	NamespaceHTML   = "http://www.w3.org/1999/xhtml"
	NamespaceSVG    = "http://www.w3.org/2000/svg"
	NamespaceMathML = "http://www.w3.org/1998/Math/MathML"
	NamespaceXLink  = "http://www.w3.org/1999/xlink"
	NamespaceXML    = "http://www.w3.org/XML/1998/namespace"
	NamespaceXMLNS  = "http://www.w3.org/2000/xmlns/"
)

// ErrNoBody is returned when a parsed document has no <body> element.
var ErrNoBody = errors.New("dom: document has no body")

// ErrNoElement is returned by ParseElement when the input has no element.
var ErrNoElement = errors.New("dom: no element in fragment")

const patchEvent = "patch"

// Document owns a node tree plus its listeners and patch observers.
type Document struct {
	root *html.Node
	body *html.Node

	listeners map[*html.Node]*emitter.Bus
	patches   emitter.Bus
	writes    atomic.Uint64
}

// NewDocument creates an empty <html><head></head><body></body></html> tree.
func NewDocument() *Document {
	root := &html.Node{Type: html.DocumentNode}
	htmlEl := newElement("", "html")
	head := newElement("", "head")
	body := newElement("", "body")
	root.AppendChild(htmlEl)
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(body)
	return newDocument(root, body)
}

// ParseDocument parses a full HTML document.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	body := findElement(root, atom.Body)
	if body == nil {
		return nil, ErrNoBody
	}
	return newDocument(root, body), nil
}

func newDocument(root, body *html.Node) *Document {
	return &Document{
		root:      root,
		body:      body,
		listeners: make(map[*html.Node]*emitter.Bus),
	}
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the <body> element.
func (d *Document) Body() *html.Node { return d.body }

// Writes returns the number of attribute, text and child-list mutations made
// through this document, connected or not.
func (d *Document) Writes() uint64 { return d.writes.Load() }

// OnPatch registers an observer for mutations under <body>.
func (d *Document) OnPatch(fn func(Patch)) (off func()) {
	return d.patches.On(patchEvent, func(args ...any) {
		fn(args[0].(Patch))
	})
}

// CreateElement allocates a detached element. ns may be empty, a namespace
// URI, or one of the short names "svg" and "math".
func (d *Document) CreateElement(ns, tag string) *html.Node {
	return newElement(elementNamespace(ns), tag)
}

// CreateTextNode allocates a detached text node.
func (d *Document) CreateTextNode(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// CreateFragment allocates a detached container whose children are moved,
// not copied, by AppendFragment.
func (d *Document) CreateFragment() *html.Node {
	return &html.Node{Type: html.DocumentNode}
}

// IsConnected reports whether n is <body> or one of its descendants.
func (d *Document) IsConnected(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.body {
			return true
		}
	}
	return false
}

// Path returns the child-index path of n from <body>, or nil when n is not
// connected.
func (d *Document) Path(n *html.Node) []int {
	var rev []int
	p := n
	for ; p != nil && p != d.body; p = p.Parent {
		rev = append(rev, childIndex(p))
	}
	if p == nil {
		return nil
	}
	path := make([]int, len(rev))
	for i := range rev {
		path[i] = rev[len(rev)-1-i]
	}
	return path
}

// Resolve returns the node at path under <body>, or nil.
func (d *Document) Resolve(path []int) *html.Node {
	n := d.body
	for _, idx := range path {
		n = ChildAt(n, idx)
		if n == nil {
			return nil
		}
	}
	return n
}

// Query returns the first element under the document matching a CSS
// selector.
func (d *Document) Query(selector string) (*html.Node, error) {
	return Query(d.root, selector)
}

// String serializes the whole document.
func (d *Document) String() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

func (d *Document) emit(p Patch) {
	d.patches.Fire(patchEvent, p)
}

func (d *Document) observed(n *html.Node) bool {
	return d.patches.Len(patchEvent) > 0 && d.IsConnected(n)
}

func newElement(ns, tag string) *html.Node {
	tag = strings.TrimSpace(tag)
	n := &html.Node{Type: html.ElementNode, Data: tag, Namespace: ns}
	if ns == "" {
		n.DataAtom = atom.Lookup([]byte(tag))
	}
	return n
}

func elementNamespace(ns string) string {
	switch ns {
	case "", NamespaceHTML:
		return ""
	case NamespaceSVG:
		return "svg"
	case NamespaceMathML:
		return "math"
	}
	return ns
}

func attributeNamespace(ns string) string {
	switch ns {
	case NamespaceXLink:
		return "xlink"
	case NamespaceXML:
		return "xml"
	case NamespaceXMLNS:
		return "xmlns"
	}
	return ns
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func childIndex(n *html.Node) int {
	i := 0
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		i++
	}
	return i
}
