package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// StyleDecl is one "property: value" pair of a style attribute.
type StyleDecl struct {
	Property string
	Value    string
}

// ParseStyle splits a style attribute into declarations, in order.
// Malformed declarations without a colon are dropped.
func ParseStyle(s string) []StyleDecl {
	var out []StyleDecl
	for _, part := range strings.Split(s, ";") {
		prop, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.TrimSpace(val)
		if prop == "" {
			continue
		}
		out = append(out, StyleDecl{Property: prop, Value: val})
	}
	return out
}

// FormatStyle serializes declarations the way browsers do: "a: b; c: d;".
func FormatStyle(decls []StyleDecl) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.Property+": "+d.Value+";")
	}
	return strings.Join(parts, " ")
}

// StyleProperty returns one property of n's style attribute.
func StyleProperty(n *html.Node, prop string) (string, bool) {
	style, _ := GetAttribute(n, "", "style")
	prop = strings.ToLower(prop)
	for _, d := range ParseStyle(style) {
		if d.Property == prop {
			return d.Value, true
		}
	}
	return "", false
}

// SetStyleProperty sets one property, preserving the others.
func (d *Document) SetStyleProperty(n *html.Node, prop, value string) {
	style, _ := GetAttribute(n, "", "style")
	decls := ParseStyle(style)
	prop = strings.ToLower(prop)

	found := false
	for i := range decls {
		if decls[i].Property == prop {
			decls[i].Value = value
			found = true
		}
	}
	if !found {
		decls = append(decls, StyleDecl{Property: prop, Value: value})
	}
	d.SetAttribute(n, "", "style", FormatStyle(decls))
}

// RemoveStyleProperty removes one property. The style attribute itself is
// removed once no declarations are left.
func (d *Document) RemoveStyleProperty(n *html.Node, prop string) {
	style, had := GetAttribute(n, "", "style")
	prop = strings.ToLower(prop)

	var kept []StyleDecl
	for _, decl := range ParseStyle(style) {
		if decl.Property != prop {
			kept = append(kept, decl)
		}
	}
	if len(kept) == 0 {
		if had {
			d.RemoveAttribute(n, "", "style")
		}
		return
	}
	d.SetAttribute(n, "", "style", FormatStyle(kept))
}
