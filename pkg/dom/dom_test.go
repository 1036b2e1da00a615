package dom

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestSetAndRemoveAttribute(t *testing.T) {
	d := NewDocument()
	el := d.CreateElement("", "div")

	d.SetAttribute(el, "", "id", "a")
	d.SetAttribute(el, "", "class", "x")
	d.SetAttribute(el, "", "id", "b")

	if v, ok := GetAttribute(el, "", "id"); !ok || v != "b" {
		t.Errorf("id = %q, %v; want b, true", v, ok)
	}
	if el.Attr[0].Key != "id" {
		t.Errorf("first attribute = %q, want id to keep its position", el.Attr[0].Key)
	}

	d.RemoveAttribute(el, "", "id")
	if HasAttribute(el, "id") {
		t.Error("id still present after RemoveAttribute")
	}
	if d.Writes() != 4 {
		t.Errorf("Writes() = %d, want 4", d.Writes())
	}
}

func TestNamespacedAttribute(t *testing.T) {
	d := NewDocument()
	use := d.CreateElement(NamespaceSVG, "use")
	d.SetAttribute(use, NamespaceXLink, "href", "#icon")

	if use.Namespace != "svg" {
		t.Errorf("Namespace = %q, want svg", use.Namespace)
	}
	if v, ok := GetAttribute(use, "xlink", "href"); !ok || v != "#icon" {
		t.Errorf("xlink:href = %q, %v", v, ok)
	}
	if _, ok := GetAttribute(use, "", "href"); ok {
		t.Error("plain href should not match the namespaced attribute")
	}
}

func TestTextContent(t *testing.T) {
	d := NewDocument()
	p := d.CreateElement("", "p")
	d.AppendChild(p, d.CreateTextNode("Hello "))
	b := d.CreateElement("", "b")
	d.AppendChild(b, d.CreateTextNode("world"))
	d.AppendChild(p, b)

	if got := TextContent(p); got != "Hello world" {
		t.Errorf("TextContent = %q", got)
	}

	d.SetTextContent(p, "plain")
	if ChildCount(p) != 1 || TextContent(p) != "plain" {
		t.Errorf("after SetTextContent: %q with %d children", TextContent(p), ChildCount(p))
	}
}

func TestStyleProperties(t *testing.T) {
	d := NewDocument()
	el := d.CreateElement("", "div")
	d.SetAttribute(el, "", "style", "color: red; top:1px")

	d.SetStyleProperty(el, "top", "2px")
	d.SetStyleProperty(el, "Left", "0")

	style, _ := GetAttribute(el, "", "style")
	if style != "color: red; top: 2px; left: 0;" {
		t.Errorf("style = %q", style)
	}
	if v, ok := StyleProperty(el, "left"); !ok || v != "0" {
		t.Errorf("left = %q, %v", v, ok)
	}

	d.RemoveStyleProperty(el, "color")
	d.RemoveStyleProperty(el, "top")
	d.RemoveStyleProperty(el, "left")
	if HasAttribute(el, "style") {
		t.Error("style attribute should be removed when empty")
	}
}

func TestDispatchBubbles(t *testing.T) {
	d := NewDocument()
	outer := d.CreateElement("", "div")
	inner := d.CreateElement("", "button")
	d.AppendChild(outer, inner)
	d.AppendChild(d.Body(), outer)

	var order []string
	d.AddEventListener(inner, "click", func(e *Event) {
		order = append(order, "inner")
		if e.CurrentTarget != inner {
			t.Error("CurrentTarget should be inner")
		}
	})
	d.AddEventListener(outer, "click", func(e *Event) {
		order = append(order, "outer")
		if e.Target != inner {
			t.Error("Target should stay inner while bubbling")
		}
	})

	d.Dispatch(inner, "click", nil)
	if strings.Join(order, ",") != "inner,outer" {
		t.Errorf("order = %v", order)
	}
}

func TestDispatchStopPropagation(t *testing.T) {
	d := NewDocument()
	outer := d.CreateElement("", "div")
	inner := d.CreateElement("", "span")
	d.AppendChild(outer, inner)

	outerCalls := 0
	d.AddEventListener(inner, "click", func(e *Event) { e.StopPropagation() })
	d.AddEventListener(outer, "click", func(e *Event) { outerCalls++ })

	d.Dispatch(inner, "click", nil)
	if outerCalls != 0 {
		t.Errorf("outer listener called %d times after StopPropagation", outerCalls)
	}
}

func TestRemoveListenerCleansUp(t *testing.T) {
	d := NewDocument()
	el := d.CreateElement("", "div")
	remove := d.AddEventListener(el, "click", func(*Event) {})
	if d.ListenerCount(el, "click") != 1 {
		t.Fatalf("ListenerCount = %d, want 1", d.ListenerCount(el, "click"))
	}
	remove()
	remove()
	if d.ListenerCount(el, "click") != 0 {
		t.Errorf("ListenerCount = %d, want 0", d.ListenerCount(el, "click"))
	}
	if _, ok := d.listeners[el]; ok {
		t.Error("empty listener bus should be dropped")
	}
}

func TestPatchesOnlyForConnectedNodes(t *testing.T) {
	d := NewDocument()
	var patches []Patch
	d.OnPatch(func(p Patch) { patches = append(patches, p) })

	ul := d.CreateElement("", "ul")
	li := d.CreateElement("", "li")
	d.SetAttribute(li, "", "class", "item")
	d.AppendChild(ul, li)
	if len(patches) != 0 {
		t.Fatalf("detached mutations produced %d patches", len(patches))
	}

	d.AppendChild(d.Body(), ul)
	d.SetAttribute(li, "", "class", "item active")
	d.RemoveNode(li)

	if len(patches) != 3 {
		t.Fatalf("patches = %d, want 3", len(patches))
	}
	if patches[0].Op != PatchInsertNode || patches[0].HTML != `<ul><li class="item"></li></ul>` {
		t.Errorf("insert patch = %+v", patches[0])
	}
	if patches[1].Op != PatchSetAttr || len(patches[1].Path) != 2 || patches[1].Path[1] != 0 {
		t.Errorf("attr patch = %+v", patches[1])
	}
	if patches[2].Op != PatchRemoveNode {
		t.Errorf("remove patch = %+v", patches[2])
	}
}

func TestPathResolve(t *testing.T) {
	d := NewDocument()
	nodes, err := ParseFragment(`<div><p>a</p><p><b>x</b></p></div>`)
	if err != nil {
		t.Fatal(err)
	}
	d.AppendChild(d.Body(), nodes[0])

	b, err := d.Query("p > b")
	if err != nil || b == nil {
		t.Fatalf("Query: %v, %v", b, err)
	}
	path := d.Path(b)
	if len(path) != 3 || path[0] != 0 || path[1] != 1 || path[2] != 0 {
		t.Errorf("Path = %v, want [0 1 0]", path)
	}
	if d.Resolve(path) != b {
		t.Error("Resolve(Path(b)) != b")
	}
	if d.Path(d.CreateElement("", "i")) != nil {
		t.Error("detached node should have a nil path")
	}
}

func TestInsertBeforeMovesNode(t *testing.T) {
	d := NewDocument()
	parent := d.CreateElement("", "div")
	a := d.CreateElement("", "a")
	b := d.CreateElement("", "b")
	d.AppendChild(parent, a)
	d.AppendChild(parent, b)

	d.InsertBefore(parent, b, a)
	if parent.FirstChild != b || parent.LastChild != a {
		t.Errorf("order = %s", RenderChildren(parent))
	}

	other := d.CreateElement("", "section")
	d.InsertBefore(parent, d.CreateElement("", "i"), other)
	if parent.LastChild.Data != "i" {
		t.Error("foreign ref should append")
	}
}

func TestAppendFragment(t *testing.T) {
	d := NewDocument()
	frag := d.CreateFragment()
	d.AppendChild(frag, d.CreateTextNode("a"))
	d.AppendChild(frag, d.CreateElement("", "br"))
	parent := d.CreateElement("", "p")

	d.AppendFragment(parent, frag)
	if ChildCount(parent) != 2 || frag.FirstChild != nil {
		t.Errorf("parent has %d children, fragment empty = %v", ChildCount(parent), frag.FirstChild == nil)
	}
	if got := Render(parent); got != "<p>a<br/></p>" {
		t.Errorf("Render = %q", got)
	}
}

func TestParseElement(t *testing.T) {
	el, err := ParseElement("  <span class=\"a\">t</span> ")
	if err != nil {
		t.Fatal(err)
	}
	if el.Type != html.ElementNode || el.Data != "span" {
		t.Errorf("got %v %q", el.Type, el.Data)
	}
	if _, err := ParseElement("just text"); err != ErrNoElement {
		t.Errorf("err = %v, want ErrNoElement", err)
	}
}

func TestMatches(t *testing.T) {
	el, _ := ParseElement(`<button class="foo bar">x</button>`)
	sel, err := Compile("button.foo")
	if err != nil {
		t.Fatal(err)
	}
	if !Matches(sel, el) {
		t.Error("button.foo should match")
	}
	if Matches(sel, el.FirstChild) {
		t.Error("text node should never match")
	}
}
