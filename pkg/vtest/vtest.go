package vtest

import (
	"strings"
	"testing"

	"github.com/vango-dev/vtemplate/pkg/dom"
	"github.com/vango-dev/vtemplate/pkg/template"
	"github.com/vango-dev/vtemplate/pkg/view"
	"golang.org/x/net/html"
)

// Harness holds a document and a view for one test. The view is
// destroyed when the test ends.
type Harness struct {
	t    testing.TB
	doc  *dom.Document
	view *view.View
}

// New creates a harness whose view starts with state.
//
// Example:
//
//	h := vtest.New(t, map[string]any{"label": "Bold"})
func New(t testing.TB, state map[string]any) *Harness {
	t.Helper()
	doc := dom.NewDocument()
	h := &Harness{
		t:    t,
		doc:  doc,
		view: view.New(doc, view.WithState(state)),
	}
	t.Cleanup(func() {
		if err := h.view.Destroy(); err != nil {
			t.Errorf("destroy view: %v", err)
		}
	})
	return h
}

// Document returns the harness document.
func (h *Harness) Document() *dom.Document { return h.doc }

// View returns the harness view.
func (h *Harness) View() *view.View { return h.view }

// Bind returns the binder of the harness view.
func (h *Harness) Bind() *template.Binder { return h.view.BindTemplate() }

// Render sets def as the view's template and renders it, failing the test
// on error.
func (h *Harness) Render(def any) *view.View {
	h.t.Helper()
	if err := h.view.SetTemplate(def); err != nil {
		h.t.Fatalf("SetTemplate: %v", err)
	}
	if err := h.view.Render(); err != nil {
		h.t.Fatalf("Render: %v", err)
	}
	return h.view
}

// Apply parses markup into the body, sets def as the view's template and
// applies it to the first element of markup.
//
// Example:
//
//	v := h.Apply(`<nav class="bar"><span></span></nav>`, def)
func (h *Harness) Apply(markup string, def any) *view.View {
	h.t.Helper()
	node, err := dom.ParseElement(markup)
	if err != nil {
		h.t.Fatalf("parse %q: %v", markup, err)
	}
	h.doc.AppendChild(h.doc.Body(), node)
	if err := h.view.SetTemplate(def); err != nil {
		h.t.Fatalf("SetTemplate: %v", err)
	}
	if err := h.view.ApplyTo(node); err != nil {
		h.t.Fatalf("ApplyTo: %v", err)
	}
	return h.view
}

// Dispatch fires event at the first element under root matching selector.
func (h *Harness) Dispatch(root *html.Node, selector, event string) *dom.Event {
	h.t.Helper()
	target, err := dom.Query(root, selector)
	if err != nil {
		h.t.Fatalf("selector %q: %v", selector, err)
	}
	if target == nil {
		h.t.Fatalf("no element matches %q in:\n%s", selector, truncate(dom.Render(root), 500))
	}
	return h.doc.Dispatch(target, event, nil)
}

// Writes runs fn and asserts it performed exactly want DOM writes.
func (h *Harness) Writes(fn func(), want uint64) {
	h.t.Helper()
	before := h.doc.Writes()
	fn()
	if got := h.doc.Writes() - before; got != want {
		h.t.Errorf("DOM writes = %d, want %d", got, want)
	}
}

// ExpectHTML asserts that node serializes to want.
func ExpectHTML(t testing.TB, node *html.Node, want string) {
	t.Helper()
	if got := dom.Render(node); got != want {
		t.Errorf("rendered HTML mismatch\n got: %s\nwant: %s", got, want)
	}
}

// ExpectContains asserts that the serialized node contains expected.
//
// Example:
//
//	vtest.ExpectContains(t, v.Element(), "Welcome Admin")
func ExpectContains(t testing.TB, node *html.Node, expected string) {
	t.Helper()
	out := dom.Render(node)
	if !strings.Contains(out, expected) {
		t.Errorf("expected rendered output to contain %q, got:\n%s", expected, truncate(out, 500))
	}
}

// ExpectNotContains asserts that the serialized node does not contain
// unexpected.
func ExpectNotContains(t testing.TB, node *html.Node, unexpected string) {
	t.Helper()
	out := dom.Render(node)
	if strings.Contains(out, unexpected) {
		t.Errorf("expected rendered output to NOT contain %q, got:\n%s", unexpected, truncate(out, 500))
	}
}

// ExpectAttribute asserts the value of an attribute on the first element
// under root matching selector. An empty want asserts the attribute is
// absent.
//
// Example:
//
//	vtest.ExpectAttribute(t, v.Element(), "button", "class", "btn-primary")
func ExpectAttribute(t testing.TB, root *html.Node, selector, attr, want string) {
	t.Helper()
	node, err := dom.Query(root, selector)
	if err != nil || node == nil {
		t.Errorf("no element matches %q (err %v)", selector, err)
		return
	}
	got, ok := dom.GetAttribute(node, "", attr)
	switch {
	case want == "" && ok:
		t.Errorf("%s: attribute %s = %q, want absent", selector, attr, got)
	case want != "" && got != want:
		t.Errorf("%s: attribute %s = %q, want %q", selector, attr, got, want)
	}
}

// ExpectElementCount asserts how many elements under root match selector.
func ExpectElementCount(t testing.TB, root *html.Node, selector string, want int) {
	t.Helper()
	sel, err := dom.Compile(selector)
	if err != nil {
		t.Errorf("selector %q: %v", selector, err)
		return
	}
	if got := len(sel.MatchAll(root)); got != want {
		t.Errorf("%d elements match %q, want %d", got, selector, want)
	}
}

// truncate truncates a string to max length with ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
