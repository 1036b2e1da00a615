package emitter

import "testing"

func TestBusFireOrder(t *testing.T) {
	var b Bus
	var got []int
	b.On("x", func(args ...any) { got = append(got, 1) })
	b.On("x", func(args ...any) { got = append(got, 2) })
	b.On("y", func(args ...any) { got = append(got, 99) })

	b.Fire("x")

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("got = %v, want [1 2]", got)
	}
}

func TestBusOffIdempotent(t *testing.T) {
	var b Bus
	calls := 0
	off := b.On("x", func(args ...any) { calls++ })
	off()
	off()
	b.Fire("x")

	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
	if !b.Empty() {
		t.Error("Empty() = false after removing the only handler")
	}
}

func TestBusArgs(t *testing.T) {
	var b Bus
	var got []any
	b.On("change:a", func(args ...any) { got = args })
	b.Fire("change:a", "a", 1, 0)

	if len(got) != 3 || got[0] != "a" || got[1] != 1 || got[2] != 0 {
		t.Errorf("args = %v", got)
	}
}

func TestEmitterListenToStop(t *testing.T) {
	var b Bus
	em := New()
	calls := 0
	stop := em.ListenTo(&b, "x", func(args ...any) { calls++ })

	b.Fire("x")
	stop()
	stop()
	b.Fire("x")

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if em.Count() != 0 {
		t.Errorf("Count() = %d, want 0", em.Count())
	}
}

func TestEmitterStopListeningFilters(t *testing.T) {
	var a, b Bus
	em := New()
	var got []string
	em.ListenTo(&a, "x", func(args ...any) { got = append(got, "a:x") })
	em.ListenTo(&a, "y", func(args ...any) { got = append(got, "a:y") })
	em.ListenTo(&b, "x", func(args ...any) { got = append(got, "b:x") })

	em.StopListening(&a, "x")
	a.Fire("x")
	a.Fire("y")
	b.Fire("x")
	if len(got) != 2 || got[0] != "a:y" || got[1] != "b:x" {
		t.Fatalf("got = %v, want [a:y b:x]", got)
	}

	got = nil
	em.StopListening(nil, "")
	a.Fire("y")
	b.Fire("x")
	if len(got) != 0 {
		t.Errorf("got = %v after StopListening(nil, \"\")", got)
	}
	if em.Count() != 0 {
		t.Errorf("Count() = %d, want 0", em.Count())
	}
}

func TestEmitterStopAfterStopListening(t *testing.T) {
	var b Bus
	em := New()
	stop := em.ListenTo(&b, "x", func(args ...any) {})
	em.StopListening(nil, "")
	stop()

	if b.Len("x") != 0 {
		t.Errorf("Len(x) = %d, want 0", b.Len("x"))
	}
}
