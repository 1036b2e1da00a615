package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vango-dev/vtemplate/pkg/dom"
	"github.com/vango-dev/vtemplate/pkg/telemetry"
	"github.com/vango-dev/vtemplate/pkg/template"
	"github.com/vango-dev/vtemplate/pkg/view"
)

func buttonLoader(doc *dom.Document) (*view.View, error) {
	v := view.New(doc, view.WithState(map[string]any{"label": "Bold"}))
	bind := v.BindTemplate()
	err := v.SetTemplate(template.Def{
		Tag:      "button",
		Children: []any{template.Def{Text: bind.To("label")}},
		On: map[string]any{"click": bind.ToFunc(func(*dom.Event) {
			v.Set("label", "clicked")
		})},
	})
	return v, err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, metrics *telemetry.Metrics) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(buttonLoader, Config{Logger: quietLogger(), Metrics: metrics})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

type wirePatch struct {
	Op    string `json:"op"`
	Path  []int  `json:"path"`
	Value string `json:"value"`
}

type wireMessage struct {
	Type    string      `json:"type"`
	Patches []wirePatch `json:"patches"`
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if msg := read(t, conn); msg.Type != string(MessageConnected) {
		t.Fatalf("first message = %+v, want connected", msg)
	}
	return conn
}

func read(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg wireMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp
}

func TestPageServesRenderedView(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `<div id="vtemplate-root"><button>Bold</button></div>`) {
		t.Errorf("page does not contain the view:\n%s", body)
	}
}

func TestModelUpdateStreamsPatches(t *testing.T) {
	s, ts := newTestServer(t, nil)
	conn := dial(t, ts)

	resp := post(t, ts.URL+"/model", map[string]any{"label": "Italic"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	msg := read(t, conn)
	if msg.Type != string(MessagePatches) || len(msg.Patches) != 1 {
		t.Fatalf("message = %+v", msg)
	}
	p := msg.Patches[0]
	if p.Op != "SetText" || p.Value != "Italic" || len(p.Path) != 2 || p.Path[0] != 0 || p.Path[1] != 0 {
		t.Errorf("patch = %+v", p)
	}
	if s.HTML() != "<button>Italic</button>" {
		t.Errorf("HTML = %s", s.HTML())
	}
}

func TestEventReplay(t *testing.T) {
	s, ts := newTestServer(t, nil)
	conn := dial(t, ts)

	resp := post(t, ts.URL+"/events", EventRequest{Path: []int{0}, Type: "click"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	msg := read(t, conn)
	if len(msg.Patches) != 1 || msg.Patches[0].Value != "clicked" {
		t.Errorf("message = %+v", msg)
	}

	resp = post(t, ts.URL+"/events", EventRequest{Path: []int{7}, Type: "click"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", resp.StatusCode)
	}
	resp = post(t, ts.URL+"/events", EventRequest{Path: []int{0}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing type status = %d, want 400", resp.StatusCode)
	}
	if err := s.Dispatch(context.Background(), EventRequest{Path: []int{3}, Type: "click"}); !errors.Is(err, errNoNode) {
		t.Errorf("Dispatch err = %v", err)
	}
}

func TestGetModel(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/model")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var state map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}
	if state["label"] != "Bold" {
		t.Errorf("state = %v", state)
	}
}

func TestReloadNotifiesClients(t *testing.T) {
	s, ts := newTestServer(t, nil)
	conn := dial(t, ts)
	if s.ClientCount() != 1 {
		t.Errorf("ClientCount = %d", s.ClientCount())
	}

	if err := s.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if msg := read(t, conn); msg.Type != string(MessageReload) {
		t.Errorf("message = %+v, want reload", msg)
	}

	// Patches from rendering the reloaded view are not replayed later.
	if err := s.Update(context.Background(), map[string]any{"label": "Italic"}); err != nil {
		t.Fatal(err)
	}
	msg := read(t, conn)
	if msg.Type != string(MessagePatches) || len(msg.Patches) != 1 || msg.Patches[0].Op != "SetText" {
		t.Errorf("message after reload = %+v, want one SetText patch", msg)
	}
}

func TestReloadFailureKeepsError(t *testing.T) {
	fail := false
	load := func(doc *dom.Document) (*view.View, error) {
		if fail {
			return nil, errors.New("broken template")
		}
		return buttonLoader(doc)
	}
	s, err := New(load, Config{Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	fail = true
	if err := s.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	if err := s.Update(context.Background(), map[string]any{"label": "x"}); !errors.Is(err, errNoView) {
		t.Errorf("Update err = %v, want errNoView", err)
	}

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), "broken template") {
		t.Error("page should show the load error")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := telemetry.NewMetrics(telemetry.WithRegistry(prometheus.NewRegistry()))
	_, ts := newTestServer(t, metrics)
	post(t, ts.URL+"/model", map[string]any{"label": "x"})

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`vtemplate_operations_total{operation="update",status="success"} 1`,
		`vtemplate_dom_writes_total{op="SetText"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
