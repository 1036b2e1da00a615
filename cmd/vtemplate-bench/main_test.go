package main

import (
	"testing"
	"time"

	"github.com/vango-dev/vtemplate/pkg/dom"
)

func TestLoadView(t *testing.T) {
	doc := dom.NewDocument()
	v, err := newLoadView(doc, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Render(); err != nil {
		t.Fatal(err)
	}
	doc.AppendChild(doc.Body(), v.Element())

	input := doc.Resolve(inputPath)
	if input == nil || input.Data != "input" {
		t.Fatalf("inputPath resolves to %v", input)
	}

	var patches []dom.Patch
	off := doc.OnPatch(func(p dom.Patch) { patches = append(patches, p) })
	defer off()

	doc.Dispatch(input, "input", "tok")
	if v.Get("echo") != "tok" {
		t.Errorf("echo = %v", v.Get("echo"))
	}
	setText := 0
	for _, p := range patches {
		if p.Op == dom.PatchSetText && p.Value == "tok" {
			setText++
		}
	}
	if setText != 2 {
		t.Errorf("SetText patches carrying the token = %d, want 2 (echo and one item)", setText)
	}
}

func TestMakeToken(t *testing.T) {
	a := makeToken(1, 10, 16)
	b := makeToken(11, 0, 16)
	if len(a) != 16 || a == b {
		t.Errorf("tokens %q and %q", a, b)
	}
	if got := makeToken(123, 1<<40, 4); len(got) <= 4 || got[:4] != "123-" {
		t.Errorf("long token = %q, want it untruncated", got)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := map[float64]time.Duration{0: 1, 0.5: 5, 0.95: 10, 1: 10}
	for p, want := range tests {
		if got := percentile(sorted, p); got != want {
			t.Errorf("percentile(%v) = %v, want %v", p, got, want)
		}
	}
	if percentile(nil, 0.5) != 0 {
		t.Error("percentile of no samples should be 0")
	}
}
