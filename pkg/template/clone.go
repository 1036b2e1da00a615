package template

// cloneValue deep-copies the plain data of a definition: Def values, maps
// and slices. Bindings, built nodes, views, collections, DOM nodes and
// functions are shared by reference since they carry live state.
func cloneValue(v any) any {
	switch vv := v.(type) {
	case Def:
		return cloneDef(vv)
	case *Def:
		if vv == nil {
			return vv
		}
		d := cloneDef(*vv)
		return &d
	case Style:
		return Style(cloneMap(vv))
	case map[string]any:
		return cloneMap(vv)
	case []any:
		return cloneSlice(vv)
	case []string:
		return append([]string(nil), vv...)
	case []Listener:
		return append([]Listener(nil), vv...)
	case NS:
		return NS{NS: vv.NS, Value: cloneValue(vv.Value)}
	case *NS:
		if vv == nil {
			return vv
		}
		return &NS{NS: vv.NS, Value: cloneValue(vv.Value)}
	}
	return v
}

func cloneDef(d Def) Def {
	out := Def{Tag: d.Tag, NS: d.NS, Text: cloneValue(d.Text)}
	if d.Attributes != nil {
		out.Attributes = cloneMap(d.Attributes)
	}
	if d.Children != nil {
		out.Children = cloneSlice(d.Children)
	}
	if d.On != nil {
		out.On = cloneMap(d.On)
	}
	return out
}

func cloneMap[M ~map[string]any](m M) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneSlice(s []any) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = cloneValue(v)
	}
	return out
}
