package observable

import "testing"

func TestModelSetFiresChange(t *testing.T) {
	m := NewModel(map[string]any{"a": 1})

	var got [][]any
	m.Subscribe("a", func(args ...any) { got = append(got, args) })

	m.Set("a", 2)
	m.Set("a", 2)
	m.Set("a", 0)

	if len(got) != 2 {
		t.Fatalf("change events = %d, want 2", len(got))
	}
	if got[0][0] != "a" || got[0][1] != 2 || got[0][2] != 1 {
		t.Errorf("first change args = %v, want [a 2 1]", got[0])
	}
	if got[1][1] != 0 {
		t.Errorf("second change value = %v, want 0", got[1][1])
	}
}

func TestModelSetNewAttributeFires(t *testing.T) {
	m := NewModel(nil)
	fired := 0
	m.On(ChangeEvent("label"), func(args ...any) { fired++ })

	m.Set("label", nil)
	if fired != 1 {
		t.Errorf("fired = %d, want 1 for a previously unset attribute", fired)
	}
	if !m.Has("label") {
		t.Error("Has(label) = false")
	}
}

func TestModelSetEventAlwaysFires(t *testing.T) {
	m := NewModel(map[string]any{"a": "x"})
	sets := 0
	m.On(SetEvent("a"), func(args ...any) { sets++ })

	m.Set("a", "x")
	m.Set("a", "x")

	if sets != 2 {
		t.Errorf("set events = %d, want 2", sets)
	}
}

func TestModelSetAllOrder(t *testing.T) {
	m := NewModel(nil)
	var order []string
	for _, k := range []string{"b", "a", "c"} {
		k := k
		m.Subscribe(k, func(args ...any) { order = append(order, k) })
	}

	m.SetAll(map[string]any{"c": 3, "a": 1, "b": 2})

	want := []string{"a", "b", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if keys := m.Keys(); len(keys) != 3 || keys[0] != "a" {
		t.Errorf("Keys() = %v", keys)
	}
}

func TestModelFireCustomEvent(t *testing.T) {
	m := NewModel(nil)
	var payload any
	off := m.On("execute", func(args ...any) { payload = args[0] })

	m.Fire("execute", "evt")
	off()
	m.Fire("execute", "ignored")

	if payload != "evt" {
		t.Errorf("payload = %v, want evt", payload)
	}
	if m.Listeners("execute") != 0 {
		t.Errorf("Listeners = %d, want 0", m.Listeners("execute"))
	}
}

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		a, b any
		want bool
	}{
		{"x", "x", true},
		{"x", "y", false},
		{1, 1, true},
		{1, int64(1), false},
		{nil, nil, true},
		{nil, "", false},
		{false, false, true},
		{[]string{"a"}, []string{"a"}, true},
	}
	for _, tt := range tests {
		if got := valuesEqual(tt.a, tt.b); got != tt.want {
			t.Errorf("valuesEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
