// Package template is a declarative DOM template engine with live bindings.
//
// A template is described with Def values (or plain strings for text) and
// normalized into a tree of *Element and *Text nodes:
//
//	bind := template.Bind(model, em)
//	tpl, err := template.New(template.Def{
//	    Tag: "button",
//	    Attributes: map[string]any{
//	        "class": []any{"btn", bind.If("isOn", "btn-on")},
//	        "title": bind.To("label"),
//	    },
//	    Children: []any{
//	        template.Def{Text: bind.To("label")},
//	    },
//	    On: map[string]any{
//	        "click":             bind.To("execute"),
//	        "click@span.icon":   bind.ToFunc(onIcon),
//	    },
//	})
//
// # Rendering modes
//
// Render creates a brand new node tree. Apply grafts the template onto an
// existing node of the same shape: attributes are overwritten (class and
// style are extended), text is replaced, and every change is recorded in a
// ledger so that Revert can restore the node exactly.
//
// # Values
//
// Attribute and text values are sequences of plain values and bindings.
// A value is falsy when it is false, nil or the empty string; 0 is not
// falsy. Falsy values are skipped when joining, and an attribute whose
// joined value is falsy is removed instead of being set to "".
//
// # Bindings
//
// Bindings re-evaluate the whole attribute (or text) they belong to each
// time the bound model attribute fires its change event, synchronously and
// without coalescing.
package template
