// Package templatefile loads view templates from YAML files.
//
// A file declares the initial model and one template tree:
//
//	model:
//	  label: Bold
//	  isOn: false
//	template:
//	  tag: button
//	  attributes:
//	    class: [btn, {if: isOn, value: btn-on}]
//	    title: {bind: label}
//	    style: {width: {bind: size, format: "%dpx"}}
//	  children:
//	    - text: [{bind: label}]
//	  on:
//	    click: {fire: execute}
//	    "click@span.icon": [{toggle: isOn}]
//
// Values are scalars, lists, {bind: attr[, format]} or {if: attr[, value,
// not]}. Event entries are {fire: event}, {set: attr, value: v} or
// {toggle: attr}.
package templatefile

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/vango-dev/vtemplate/pkg/dom"
	"github.com/vango-dev/vtemplate/pkg/template"
	"github.com/vango-dev/vtemplate/pkg/view"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"
)

// File is a parsed template file.
type File struct {
	Source string

	model map[string]any
	root  nodeFile
}

type documentFile struct {
	Model    map[string]any `yaml:"model"`
	Template *nodeFile      `yaml:"template"`
}

type nodeFile struct {
	Tag        string         `yaml:"tag"`
	NS         string         `yaml:"ns"`
	Text       any            `yaml:"text"`
	Attributes map[string]any `yaml:"attributes"`
	Children   []childFile    `yaml:"children"`
	On         map[string]any `yaml:"on"`
}

// childFile is either a bare string (a text node) or a nested node.
type childFile struct {
	text string
	node *nodeFile
}

func (c *childFile) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		c.text = value.Value
		return nil
	}
	c.node = &nodeFile{}
	return value.Decode(c.node)
}

// Load reads and parses a template file from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("templatefile: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadFS reads and parses a template file from fsys.
func LoadFS(fsys fs.FS, path string) (*File, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("templatefile: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses a template file. The template is built once against a
// scratch document so that malformed definitions are reported here.
func Parse(data []byte, source string) (*File, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("templatefile: file %s is empty", source)
	}
	var doc documentFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("templatefile: parse %s: %w", source, err)
	}
	if doc.Template == nil {
		return nil, fmt.Errorf("templatefile: file %s has no template", source)
	}

	f := &File{Source: source, model: doc.Model, root: *doc.Template}
	if _, err := f.NewView(dom.NewDocument()); err != nil {
		return nil, err
	}
	return f, nil
}

// Model returns a copy of the initial model values.
func (f *File) Model() map[string]any {
	out := make(map[string]any, len(f.model))
	for k, v := range f.model {
		out[k] = v
	}
	return out
}

// NewView builds an unrendered view holding the file's model and template.
func (f *File) NewView(doc *dom.Document) (*view.View, error) {
	v := view.New(doc, view.WithState(f.Model()))
	b := &builder{view: v, bind: v.BindTemplate(), source: f.Source}
	def, err := b.node(f.root, "template")
	if err != nil {
		return nil, err
	}
	if err := v.SetTemplate(def); err != nil {
		return nil, fmt.Errorf("templatefile: %s: %w", f.Source, err)
	}
	return v, nil
}

type builder struct {
	view   *view.View
	bind   *template.Binder
	source string
}

func (b *builder) errorf(path, format string, args ...any) error {
	return fmt.Errorf("templatefile: %s: %s: %s", b.source, path, fmt.Sprintf(format, args...))
}

func (b *builder) node(n nodeFile, path string) (template.Def, error) {
	def := template.Def{Tag: n.Tag, NS: namespace(n.NS)}

	if n.Text != nil {
		text, err := b.value(n.Text, path+".text")
		if err != nil {
			return def, err
		}
		def.Text = text
	}

	if len(n.Attributes) > 0 {
		def.Attributes = make(map[string]any, len(n.Attributes))
		for name, raw := range n.Attributes {
			v, err := b.attribute(name, raw, path+".attributes."+name)
			if err != nil {
				return def, err
			}
			def.Attributes[name] = v
		}
	}

	for i, child := range n.Children {
		childPath := fmt.Sprintf("%s.children[%d]", path, i)
		if child.node == nil {
			def.Children = append(def.Children, child.text)
			continue
		}
		c, err := b.node(*child.node, childPath)
		if err != nil {
			return def, err
		}
		def.Children = append(def.Children, c)
	}

	if len(n.On) > 0 {
		def.On = make(map[string]any, len(n.On))
		for key, raw := range n.On {
			listeners, err := b.listeners(raw, path+".on."+key)
			if err != nil {
				return def, err
			}
			def.On[key] = listeners
		}
	}
	return def, nil
}

func (b *builder) attribute(name string, raw any, path string) (any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return b.value(raw, path)
	}
	if ns, ok := m["ns"].(string); ok {
		v, err := b.value(m["value"], path+".value")
		if err != nil {
			return nil, err
		}
		return template.NS{NS: namespace(ns), Value: v}, nil
	}
	if name == "style" && !isBinding(m) {
		style := make(template.Style, len(m))
		for prop, pv := range m {
			v, err := b.value(pv, path+"."+prop)
			if err != nil {
				return nil, err
			}
			style[prop] = v
		}
		return style, nil
	}
	return b.value(raw, path)
}

func isBinding(m map[string]any) bool {
	_, bind := m["bind"]
	_, guard := m["if"]
	return bind || guard
}

func (b *builder) value(raw any, path string) (any, error) {
	switch v := raw.(type) {
	case []any:
		out := make([]any, 0, len(v))
		for i, item := range v {
			iv, err := b.value(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, iv)
		}
		return out, nil
	case map[string]any:
		return b.binding(v, path)
	}
	return raw, nil
}

func (b *builder) binding(m map[string]any, path string) (any, error) {
	if attr, ok := m["bind"].(string); ok {
		format, _ := m["format"].(string)
		if format == "" {
			return b.bind.To(attr), nil
		}
		return b.bind.To(attr, func(v any, _ *html.Node) any {
			if template.IsFalsy(v) {
				return v
			}
			return fmt.Sprintf(format, v)
		}), nil
	}
	if attr, ok := m["if"].(string); ok {
		negate, _ := m["not"].(bool)
		if negate {
			return b.bind.If(attr, m["value"], func(v any, _ *html.Node) bool {
				return template.IsFalsy(v)
			}), nil
		}
		return b.bind.If(attr, m["value"]), nil
	}
	return nil, b.errorf(path, "expected {bind: ...} or {if: ...}")
}

func (b *builder) listeners(raw any, path string) ([]any, error) {
	items, ok := raw.([]any)
	if !ok {
		items = []any{raw}
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, b.errorf(fmt.Sprintf("%s[%d]", path, i), "expected an event entry")
		}
		l, err := b.listener(m, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (b *builder) listener(m map[string]any, path string) (template.Listener, error) {
	v := b.view
	switch {
	case m["fire"] != nil:
		event, ok := m["fire"].(string)
		if !ok || event == "" {
			return nil, b.errorf(path, "fire needs an event name")
		}
		return b.bind.To(event), nil
	case m["set"] != nil:
		attr, ok := m["set"].(string)
		if !ok || attr == "" {
			return nil, b.errorf(path, "set needs an attribute name")
		}
		value := m["value"]
		return b.bind.ToFunc(func(*dom.Event) { v.Set(attr, value) }), nil
	case m["toggle"] != nil:
		attr, ok := m["toggle"].(string)
		if !ok || attr == "" {
			return nil, b.errorf(path, "toggle needs an attribute name")
		}
		return b.bind.ToFunc(func(*dom.Event) { v.Set(attr, template.IsFalsy(v.Get(attr))) }), nil
	}
	return nil, b.errorf(path, "expected fire, set or toggle")
}

// namespace expands the short names svg, mathml and xlink.
func namespace(ns string) string {
	switch strings.ToLower(ns) {
	case "svg":
		return dom.NamespaceSVG
	case "math", "mathml":
		return dom.NamespaceMathML
	case "xlink":
		return dom.NamespaceXLink
	case "xml":
		return dom.NamespaceXML
	}
	return ns
}
