// Package vtest provides testing helpers for views and templates.
//
// # Quick Start
//
//	func TestToolbar(t *testing.T) {
//	    h := vtest.New(t, map[string]any{"label": "Bold"})
//	    v := h.Render(template.Def{
//	        Tag:      "button",
//	        Children: []any{template.Def{Text: h.Bind().To("label")}},
//	    })
//	    vtest.ExpectHTML(t, v.Element(), "<button>Bold</button>")
//
//	    h.Writes(func() { v.Set("label", "Italic") }, 1)
//	}
//
// # Events
//
// Dispatch finds an element by CSS selector and fires an event at it:
//
//	h.Dispatch(v.Element(), "span.icon", "click")
//
// # Render Assertions
//
//	vtest.ExpectContains(t, node, "Welcome")
//	vtest.ExpectNotContains(t, node, "Error")
//	vtest.ExpectAttribute(t, node, "button", "class", "btn btn-on")
package vtest
