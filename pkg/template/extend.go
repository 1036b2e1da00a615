package template

import "fmt"

// Extend merges a partial definition into the template before it is
// rendered. Attribute values and event listeners are appended per name,
// text content is appended and children are merged positionally. The
// partial may omit Tag and Text on any level.
//
// The partial is checked against the whole tree before anything is merged,
// so a failed Extend leaves the template unchanged.
func (t *Template) Extend(partial any) error {
	if err := checkFresh(t.root); err != nil {
		return fmt.Errorf("%w: cannot extend", err)
	}
	ext, err := normalize(cloneValue(partial), true)
	if err != nil {
		return err
	}
	if err := checkExtend(t.root, ext); err != nil {
		return err
	}
	mergeNode(t.root, ext)
	return nil
}

// isEmptyPartial reports whether ext carries nothing to merge.
func isEmptyPartial(ext Node) bool {
	el, ok := ext.(*Element)
	return ok && el.Tag == "" && el.NS == "" &&
		len(el.Attributes) == 0 && len(el.Children) == 0 && len(el.Events) == 0
}

func checkExtend(target, ext Node) error {
	if isEmptyPartial(ext) {
		return nil
	}
	switch e := ext.(type) {
	case *Text:
		if _, ok := target.(*Text); !ok {
			return fmt.Errorf("%w: text extension for an element", ErrStructuralMismatch)
		}
		return nil
	case *Element:
		el, ok := target.(*Element)
		if !ok {
			return fmt.Errorf("%w: element extension for a text node", ErrStructuralMismatch)
		}
		if e.Tag != "" && e.Tag != el.Tag {
			return fmt.Errorf("%w: <%s> extension for <%s>", ErrStructuralMismatch, e.Tag, el.Tag)
		}
		for name, schema := range e.Attributes {
			prior, ok := el.Attributes[name]
			if !ok {
				continue
			}
			if (prior.Style == nil) != (schema.Style == nil) {
				return fmt.Errorf("%w: attribute %q mixes map and list forms", ErrStructuralMismatch, name)
			}
			if schema.NS != "" && schema.NS != prior.NS {
				return fmt.Errorf("%w: attribute %q changes namespace", ErrStructuralMismatch, name)
			}
		}
		if len(e.Children) == 0 {
			return nil
		}
		if len(e.Children) != len(el.Children) {
			return fmt.Errorf("%w: <%s> has %d children, extension has %d", ErrStructuralMismatch, el.Tag, len(el.Children), len(e.Children))
		}
		for i, child := range e.Children {
			extChild, ok := child.(Node)
			if !ok {
				return fmt.Errorf("%w: extension child %d is %T", ErrStructuralMismatch, i, child)
			}
			targetChild, ok := el.Children[i].(Node)
			if !ok {
				if isEmptyPartial(extChild) {
					continue
				}
				return fmt.Errorf("%w: child %d of <%s> is not a definition", ErrStructuralMismatch, i, el.Tag)
			}
			if err := checkExtend(targetChild, extChild); err != nil {
				return err
			}
		}
	}
	return nil
}

func mergeNode(target, ext Node) {
	if isEmptyPartial(ext) {
		return
	}
	switch e := ext.(type) {
	case *Text:
		t := target.(*Text)
		t.Content = append(t.Content, e.Content...)
	case *Element:
		el := target.(*Element)
		if el.Attributes == nil {
			el.Attributes = make(map[string]*AttributeSchema)
		}
		if el.Events == nil {
			el.Events = make(map[string]*ListenerSchema)
		}
		for name, schema := range e.Attributes {
			prior, ok := el.Attributes[name]
			switch {
			case !ok:
				el.Attributes[name] = schema
			case prior.Style != nil:
				for prop, v := range schema.Style {
					prior.Style[prop] = v
				}
			default:
				prior.Values = append(prior.Values, schema.Values...)
			}
		}
		for key, ls := range e.Events {
			if prior, ok := el.Events[key]; ok {
				prior.Items = append(prior.Items, ls.Items...)
				continue
			}
			el.Events[key] = ls
		}
		for i, child := range e.Children {
			if targetChild, ok := el.Children[i].(Node); ok {
				mergeNode(targetChild, child.(Node))
			}
		}
	}
}
