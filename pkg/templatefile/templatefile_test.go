package templatefile

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/vango-dev/vtemplate/pkg/dom"
	"github.com/vango-dev/vtemplate/pkg/template"
	"github.com/vango-dev/vtemplate/pkg/vtest"
)

const buttonFile = `
model:
  label: Bold
  isOn: false
  size: 10
template:
  tag: button
  attributes:
    class: [btn, {if: isOn, value: btn-on}]
    title: {bind: label}
    style:
      width: {bind: size, format: "%dpx"}
  children:
    - text: [{bind: label}]
    - tag: span
      attributes:
        class: icon
  on:
    click: {fire: execute}
    "click@span.icon": [{toggle: isOn}]
`

func TestParseAndRender(t *testing.T) {
	f, err := Parse([]byte(buttonFile), "button.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if f.Model()["label"] != "Bold" {
		t.Errorf("model = %v", f.Model())
	}

	doc := dom.NewDocument()
	v, err := f.NewView(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Render(); err != nil {
		t.Fatal(err)
	}
	want := `<button class="btn" style="width: 10px;" title="Bold">Bold<span class="icon"></span></button>`
	if got := dom.Render(v.Element()); got != want {
		t.Errorf("Render = %s\nwant     %s", got, want)
	}

	executed := 0
	v.On("execute", func(...any) { executed++ })
	doc.Dispatch(v.Element().LastChild, "click", nil)
	if executed != 1 {
		t.Errorf("execute fired %d times", executed)
	}
	if v.Get("isOn") != true {
		t.Errorf("isOn = %v after toggle", v.Get("isOn"))
	}
	if got, _ := dom.GetAttribute(v.Element(), "", "class"); got != "btn btn-on" {
		t.Errorf("class = %q", got)
	}

	v.Set("size", 12)
	if got, _ := dom.StyleProperty(v.Element(), "width"); got != "12px" {
		t.Errorf("width = %q", got)
	}
}

func TestNamespacesAndNegation(t *testing.T) {
	src := `
model:
  hidden: false
template:
  tag: svg
  ns: svg
  attributes:
    class: {if: hidden, value: visible, not: true}
  children:
    - tag: use
      ns: svg
      attributes:
        href: {ns: xlink, value: "#bold"}
`
	f, err := Parse([]byte(src), "icon.yaml")
	if err != nil {
		t.Fatal(err)
	}
	v, err := f.NewView(dom.NewDocument())
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Render(); err != nil {
		t.Fatal(err)
	}
	if got, _ := dom.GetAttribute(v.Element(), "", "class"); got != "visible" {
		t.Errorf("class = %q, want visible", got)
	}
	if got, ok := dom.GetAttribute(v.Element().FirstChild, dom.NamespaceXLink, "href"); !ok || got != "#bold" {
		t.Errorf("xlink:href = %q, %v", got, ok)
	}
	v.Set("hidden", true)
	if dom.HasAttribute(v.Element(), "class") {
		t.Error("class should be removed when hidden")
	}
}

func TestSetListener(t *testing.T) {
	src := `
template:
  tag: input
  on:
    focus: {set: focused, value: true}
`
	f, err := Parse([]byte(src), "input.yaml")
	if err != nil {
		t.Fatal(err)
	}
	doc := dom.NewDocument()
	v, err := f.NewView(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Render(); err != nil {
		t.Fatal(err)
	}
	doc.Dispatch(v.Element(), "focus", nil)
	if v.Get("focused") != true {
		t.Errorf("focused = %v", v.Get("focused"))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "  ", "is empty"},
		{"no template", "model: {a: 1}", "has no template"},
		{"bad yaml", "template: [", "parse"},
		{"bad binding", "template: {tag: p, attributes: {title: {nope: 1}}}", "template.attributes.title"},
		{"bad event", "template: {tag: p, on: {click: {jump: x}}}", "expected fire, set or toggle"},
		{"event scalar", "template: {tag: p, on: {click: go}}", "expected an event entry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.yaml")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestParseMalformedDefinition(t *testing.T) {
	_, err := Parse([]byte("template: {tag: p, text: hi}"), "bad.yaml")
	if !errors.Is(err, template.ErrMalformedDefinition) {
		t.Errorf("err = %v, want ErrMalformedDefinition", err)
	}
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{"views/button.yaml": {Data: []byte(buttonFile)}}
	f, err := LoadFS(fsys, "views/button.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if f.Source != "views/button.yaml" {
		t.Errorf("Source = %q", f.Source)
	}
	if _, err := LoadFS(fsys, "missing.yaml"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestListFile(t *testing.T) {
	src := `
model:
  selected: false
template:
  tag: ul
  attributes:
    class: [menu, {if: selected, value: has-selection}]
  children:
    - tag: li
      children: [Cut]
    - tag: li
      children: [Copy]
  on:
    "click@li": [{set: selected, value: true}, {fire: pick}]
`
	f, err := Parse([]byte(src), "menu.yaml")
	if err != nil {
		t.Fatal(err)
	}
	doc := dom.NewDocument()
	v, err := f.NewView(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Render(); err != nil {
		t.Fatal(err)
	}
	vtest.ExpectHTML(t, v.Element(), `<ul class="menu"><li>Cut</li><li>Copy</li></ul>`)
	vtest.ExpectElementCount(t, v.Element(), "li", 2)

	picked := 0
	v.On("pick", func(...any) { picked++ })
	doc.Dispatch(v.Element(), "click", nil)
	if picked != 0 {
		t.Error("click on the list itself should not match li")
	}
	doc.Dispatch(v.Element().LastChild, "click", nil)
	if picked != 1 {
		t.Errorf("pick fired %d times", picked)
	}
	vtest.ExpectAttribute(t, v.Element(), "ul", "class", "menu has-selection")
}
