package vtest_test

import (
	"testing"

	"github.com/vango-dev/vtemplate/pkg/dom"
	"github.com/vango-dev/vtemplate/pkg/template"
	"github.com/vango-dev/vtemplate/pkg/vtest"
)

func TestHarnessRender(t *testing.T) {
	h := vtest.New(t, map[string]any{"label": "Bold", "isOn": false})
	bind := h.Bind()
	v := h.Render(template.Def{
		Tag: "button",
		Attributes: map[string]any{
			"class": []any{"btn", bind.If("isOn", "btn-on")},
		},
		Children: []any{
			template.Def{Text: bind.To("label")},
			template.Def{Tag: "span", Attributes: map[string]any{"class": "icon"}},
		},
		On: map[string]any{"click@span.icon": bind.ToFunc(func(*dom.Event) {
			h.View().Set("isOn", !h.View().Get("isOn").(bool))
		})},
	})

	vtest.ExpectHTML(t, v.Element(), `<button class="btn">Bold<span class="icon"></span></button>`)
	vtest.ExpectElementCount(t, v.Element(), "span", 1)

	h.Writes(func() { v.Set("label", "Italic") }, 1)
	vtest.ExpectContains(t, v.Element(), "Italic")
	vtest.ExpectNotContains(t, v.Element(), "Bold")

	h.Dispatch(v.Element(), "span.icon", "click")
	vtest.ExpectAttribute(t, v.Element(), "button", "class", "btn btn-on")
}

func TestHarnessApply(t *testing.T) {
	h := vtest.New(t, map[string]any{"title": "Close"})
	v := h.Apply(`<nav class="bar"><a>x</a></nav>`, template.Def{
		Tag:        "nav",
		Attributes: map[string]any{"class": "toolbar"},
		Children: []any{
			template.Def{Tag: "a", Attributes: map[string]any{"title": h.Bind().To("title")}},
		},
	})

	vtest.ExpectAttribute(t, v.Element(), "nav", "class", "bar toolbar")
	vtest.ExpectAttribute(t, v.Element(), "a", "title", "Close")

	if err := v.Destroy(); err != nil {
		t.Fatal(err)
	}
	vtest.ExpectHTML(t, v.Element(), `<nav class="bar"><a>x</a></nav>`)
	vtest.ExpectAttribute(t, v.Element(), "a", "title", "")
}
