package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vango-dev/vtemplate/pkg/dom"
	"github.com/vango-dev/vtemplate/pkg/template"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestObserveOperation(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	m.ObserveOperation("render", time.Now(), nil)
	m.ObserveOperation("apply", time.Now(), fmt.Errorf("wrap: %w", template.ErrStructuralMismatch))

	out := scrape(t, m)
	for _, want := range []string{
		`vtemplate_operations_total{operation="render",status="success"} 1`,
		`vtemplate_operations_total{operation="apply",status="error"} 1`,
		`vtemplate_operation_errors_total{kind="structural_mismatch",operation="apply"} 1`,
		`vtemplate_operation_duration_seconds_count{operation="render"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestObserveDocument(t *testing.T) {
	m := NewMetrics(WithNamespace("test"))
	doc := dom.NewDocument()
	off := m.ObserveDocument(doc)

	p := doc.CreateElement("", "p")
	doc.AppendChild(doc.Body(), p)
	doc.SetAttribute(p, "", "class", "a")
	doc.SetAttribute(p, "", "class", "b")
	off()
	doc.SetAttribute(p, "", "class", "c")

	out := scrape(t, m)
	if !strings.Contains(out, `test_dom_writes_total{op="SetAttr"} 2`) {
		t.Errorf("SetAttr count missing:\n%s", out)
	}
	if !strings.Contains(out, `test_dom_writes_total{op="InsertNode"} 1`) {
		t.Errorf("InsertNode count missing:\n%s", out)
	}
}

func TestClientsGauge(t *testing.T) {
	m := NewMetrics()
	m.ClientConnected()
	m.ClientConnected()
	m.ClientDisconnected()
	if out := scrape(t, m); !strings.Contains(out, "vtemplate_preview_clients 1") {
		t.Errorf("gauge missing:\n%s", out)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{template.ErrMalformedDefinition, "malformed_definition"},
		{fmt.Errorf("x: %w", template.ErrAlreadyRendered), "already_rendered"},
		{template.ErrRevertWithoutApply, "revert_without_apply"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestTracerWithoutProvider(t *testing.T) {
	tr := NewTracer("")
	ctx, span := tr.Start(context.Background(), "render")
	if ctx == nil || span == nil {
		t.Fatal("Start returned nil")
	}
	End(span, errors.New("boom"))
	_, span = tr.Start(ctx, "apply")
	End(span, nil)
}
