// Command vtemplate-bench drives the preview server with concurrent
// WebSocket clients and reports event round-trip latency.
//
// Each client replays input events carrying a unique token and waits for
// the SetText patch that echoes it. The previewed view binds the token to
// a text node and to one item of a collection, so every event costs one
// model update on the root view and one on an item view.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"os"
	"runtime"
	"runtime/debug"
	"runtime/metrics"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/vtemplate/pkg/dom"
	"github.com/vango-dev/vtemplate/pkg/preview"
	"github.com/vango-dev/vtemplate/pkg/telemetry"
	"github.com/vango-dev/vtemplate/pkg/template"
	"github.com/vango-dev/vtemplate/pkg/view"
)

type profile struct {
	Name     string
	Clients  int
	Duration time.Duration
	RPS      float64
	ListSize int
	MaxProcs int
}

var profiles = map[string]profile{
	"fast": {
		Name:     "fast",
		Clients:  10,
		Duration: 10 * time.Second,
		RPS:      5,
		ListSize: 20,
	},
	"standard": {
		Name:     "standard",
		Clients:  50,
		Duration: 30 * time.Second,
		RPS:      5,
		ListSize: 50,
	},
	"stress": {
		Name:     "stress",
		Clients:  200,
		Duration: 60 * time.Second,
		RPS:      10,
		ListSize: 200,
		MaxProcs: 4,
	},
}

type benchConfig struct {
	Profile      string
	Clients      int
	Duration     time.Duration
	RPS          float64
	ListSize     int
	PayloadBytes int
	MaxProcs     int
	JSONOutput   string
	EventTimeout time.Duration
}

type benchCounters struct {
	eventsSent     atomic.Uint64
	eventsComplete atomic.Uint64
	patchFrames    atomic.Uint64
	patchBytes     atomic.Uint64
	patchesTotal   atomic.Uint64
}

type benchErrors struct {
	dialFailures   atomic.Uint64
	eventFailures  atomic.Uint64
	decodeFailures atomic.Uint64
	tokenMissing   atomic.Uint64
	totalErrors    atomic.Uint64
}

// patchOpCounts counts received patches per operation name.
type patchOpCounts struct {
	mu     sync.Mutex
	counts map[string]uint64
}

func (p *patchOpCounts) add(op string) {
	p.mu.Lock()
	if p.counts == nil {
		p.counts = make(map[string]uint64)
	}
	p.counts[op]++
	p.mu.Unlock()
}

func (p *patchOpCounts) snapshot() map[string]uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]uint64, len(p.counts))
	for k, v := range p.counts {
		out[k] = v
	}
	return out
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg, err := parseConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}

	srv, err := preview.New(func(doc *dom.Document) (*view.View, error) {
		return newLoadView(doc, cfg.ListSize)
	}, preview.Config{
		Logger:  logger,
		Metrics: telemetry.NewMetrics(),
	})
	if err != nil {
		logger.Error("start preview", "error", err)
		os.Exit(1)
	}
	defer srv.Close()

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		logger.Error("listen", "error", err)
		os.Exit(1)
	}
	httpServer := &http.Server{Handler: srv}
	go func() {
		_ = httpServer.Serve(ln)
	}()
	defer func() {
		_ = httpServer.Shutdown(context.Background())
	}()
	baseURL := "http://" + ln.Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	samplesCh := make(chan time.Duration, max(1024, cfg.Clients*4))
	var samples []time.Duration
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for rtt := range samplesCh {
			samples = append(samples, rtt)
		}
	}()

	var counters benchCounters
	var errCounts benchErrors
	var patchOps patchOpCounts

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < cfg.Clients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			c := &client{
				id:       clientID,
				baseURL:  baseURL,
				cfg:      cfg,
				counters: &counters,
				errs:     &errCounts,
				ops:      &patchOps,
				samples:  samplesCh,
			}
			if err := c.run(ctx); err != nil {
				errCounts.totalErrors.Add(1)
				logger.Warn("client stopped", "client", clientID, "error", err)
			}
		}(i)
	}

	wg.Wait()
	close(samplesCh)
	<-collectorDone
	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	report := buildReport(cfg, elapsed, samples, &counters, &errCounts, &patchOps, before, after, beforeMetrics, afterMetrics)

	writeSummary(os.Stderr, report)
	if err := writeJSON(cfg.JSONOutput, report); err != nil {
		logger.Error("write json", "error", err)
		os.Exit(1)
	}
}

// newLoadView builds the benchmarked view: an input whose events set the
// echo text and relabel one item of a list.
func newLoadView(doc *dom.Document, listSize int) (*view.View, error) {
	root := view.New(doc, view.WithState(map[string]any{"echo": ""}))

	items := make([]view.Viewer, listSize)
	for i := range items {
		item := view.New(doc, view.WithState(map[string]any{"label": fmt.Sprintf("Item %d", i)}))
		b := item.BindTemplate()
		if err := item.SetTemplate(template.Def{
			Tag:      "li",
			Children: []any{template.Def{Text: b.To("label")}},
		}); err != nil {
			return nil, err
		}
		items[i] = item
	}
	list, err := root.CreateCollection(items...)
	if err != nil {
		return nil, err
	}

	b := root.BindTemplate()
	onInput := b.ToFunc(func(evt *dom.Event) {
		value, _ := evt.Detail.(string)
		root.Set("echo", value)
		if list.Len() > 0 {
			h := fnv.New32a()
			_, _ = h.Write([]byte(value))
			list.Get(int(h.Sum32() % uint32(list.Len()))).(*view.View).Set("label", value)
		}
	})

	err = root.SetTemplate(template.Def{
		Tag: "div",
		Children: []any{
			template.Def{
				Tag:        "input",
				Attributes: map[string]any{"type": "text"},
				On:         map[string]any{"input": onInput},
			},
			template.Def{
				Tag:        "div",
				Attributes: map[string]any{"id": "echo"},
				Children:   []any{template.Def{Text: b.To("echo")}},
			},
			template.Def{Tag: "ul", Children: []any{list}},
		},
	})
	return root, err
}

// inputPath addresses the <input> from <body>: body > div > input.
var inputPath = []int{0, 0}

type client struct {
	id       int
	baseURL  string
	cfg      benchConfig
	counters *benchCounters
	errs     *benchErrors
	ops      *patchOpCounts
	samples  chan<- time.Duration
	http     http.Client
}

type wireMessage struct {
	Type    string `json:"type"`
	Patches []struct {
		Op    string `json:"op"`
		Value string `json:"value"`
	} `json:"patches"`
}

func (c *client) run(ctx context.Context) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		c.errs.dialFailures.Add(1)
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	period := time.Duration(float64(time.Second) / c.cfg.RPS)
	var seq uint64
	for {
		if ctx.Err() != nil {
			return nil
		}

		seq++
		token := makeToken(c.id, seq, c.cfg.PayloadBytes)
		start := time.Now()

		if err := c.send(ctx, token); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.errs.eventFailures.Add(1)
			return err
		}
		c.counters.eventsSent.Add(1)

		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.EventTimeout))
		if err := c.waitForToken(conn, token); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if isTimeout(err) {
				c.errs.tokenMissing.Add(1)
				return fmt.Errorf("token %s not observed in patches", token)
			}
			return fmt.Errorf("wait for token: %w", err)
		}

		c.counters.eventsComplete.Add(1)
		c.samples <- time.Since(start)

		if sleep := period - time.Since(start); sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}
}

func (c *client) send(ctx context.Context, token string) error {
	body, err := json.Marshal(preview.EventRequest{Path: inputPath, Type: "input", Detail: token})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("post event: status %d", resp.StatusCode)
	}
	return nil
}

func (c *client) waitForToken(conn *websocket.Conn, token string) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.errs.decodeFailures.Add(1)
			return err
		}
		if msg.Type != string(preview.MessagePatches) {
			continue
		}
		c.counters.patchFrames.Add(1)
		c.counters.patchBytes.Add(uint64(len(data)))
		found := false
		for _, p := range msg.Patches {
			c.ops.add(p.Op)
			c.counters.patchesTotal.Add(1)
			if p.Op == dom.PatchSetText.String() && p.Value == token {
				found = true
			}
		}
		if found {
			return nil
		}
	}
}

func parseConfig() (benchConfig, error) {
	profileFlag := flag.String("profile", "standard", "profile: fast|standard|stress")
	clientsFlag := flag.Int("clients", -1, "number of concurrent websocket clients")
	durationFlag := flag.String("duration", "", "benchmark duration, e.g. 30s")
	rpsFlag := flag.Float64("rps", -1, "target events/sec per client")
	listFlag := flag.Int("list", -1, "number of item views in the collection")
	payloadFlag := flag.Int("payload-bytes", 16, "bytes of token payload per event")
	maxProcsFlag := flag.Int("max-procs", -1, "GOMAXPROCS cap (0 to leave unchanged)")
	jsonFlag := flag.String("json", "-", "JSON output path ('-' for stdout)")
	flag.Parse()

	name := strings.ToLower(strings.TrimSpace(*profileFlag))
	base, ok := profiles[name]
	if !ok {
		return benchConfig{}, fmt.Errorf("unknown profile %q", name)
	}

	cfg := benchConfig{
		Profile:      base.Name,
		Clients:      base.Clients,
		Duration:     base.Duration,
		RPS:          base.RPS,
		ListSize:     base.ListSize,
		PayloadBytes: *payloadFlag,
		MaxProcs:     base.MaxProcs,
		JSONOutput:   strings.TrimSpace(*jsonFlag),
	}
	if *clientsFlag != -1 {
		cfg.Clients = *clientsFlag
	}
	if *durationFlag != "" {
		d, err := time.ParseDuration(*durationFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -duration: %w", err)
		}
		cfg.Duration = d
	}
	if *rpsFlag != -1 {
		cfg.RPS = *rpsFlag
	}
	if *listFlag != -1 {
		cfg.ListSize = *listFlag
	}
	if *maxProcsFlag != -1 {
		cfg.MaxProcs = *maxProcsFlag
	}
	if cfg.JSONOutput == "" {
		cfg.JSONOutput = "-"
	}

	switch {
	case cfg.Clients <= 0:
		return benchConfig{}, errors.New("-clients must be > 0")
	case cfg.Duration <= 0:
		return benchConfig{}, errors.New("-duration must be > 0")
	case cfg.RPS <= 0:
		return benchConfig{}, errors.New("-rps must be > 0")
	case cfg.ListSize < 0:
		return benchConfig{}, errors.New("-list must be >= 0")
	case cfg.PayloadBytes <= 0:
		return benchConfig{}, errors.New("-payload-bytes must be > 0")
	case cfg.MaxProcs < 0:
		return benchConfig{}, errors.New("-max-procs must be >= 0")
	}

	cfg.EventTimeout = eventTimeout(cfg.RPS)
	return cfg, nil
}

// eventTimeout allows ten periods, and at least two seconds, per event.
func eventTimeout(rps float64) time.Duration {
	timeout := 10 * time.Duration(float64(time.Second)/rps)
	return max(timeout, 2*time.Second)
}

// makeToken returns a token unique per client and sequence number, padded
// to payloadBytes.
func makeToken(clientID int, seq uint64, payloadBytes int) string {
	base := strconv.Itoa(clientID) + "-" + strconv.FormatUint(seq, 36)
	if len(base) >= payloadBytes {
		return base
	}
	return base + strings.Repeat("x", payloadBytes-len(base))
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds float64
	cpuGCSeconds    float64
	heapAllocs      uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)
	return runtimeMetricsSnapshot{
		cpuTotalSeconds: samples[0].Value.Float64(),
		cpuGCSeconds:    samples[1].Value.Float64(),
		heapAllocs:      samples[2].Value.Uint64(),
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type benchReport struct {
	Version    string         `json:"version"`
	Run        runInfo        `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	LatencyMS  latencyInfo    `json:"latency_ms"`
	Throughput throughputInfo `json:"throughput"`
	GC         gcInfo         `json:"gc"`
	Patches    patchInfo      `json:"patches"`
	Errors     errorInfo      `json:"errors"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
	Revision  string `json:"revision,omitempty"`
}

type workloadInfo struct {
	Profile        string  `json:"profile"`
	Clients        int     `json:"clients"`
	DurationMS     int64   `json:"duration_ms"`
	RPSPerClient   float64 `json:"rps_per_client"`
	ListSize       int     `json:"list_size"`
	PayloadBytes   int     `json:"payload_bytes"`
	MaxProcs       int     `json:"max_procs"`
	EventTimeoutMS int64   `json:"event_timeout_ms"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type throughputInfo struct {
	EventsTotal  uint64  `json:"events_total"`
	EventsPerSec float64 `json:"events_per_sec"`
}

type gcInfo struct {
	AllocMB       float64 `json:"alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
	PauseTotalMS  float64 `json:"pause_total_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects"`
}

type patchInfo struct {
	Frames          uint64            `json:"frames_total"`
	BytesTotal      uint64            `json:"bytes_total"`
	PatchesTotal    uint64            `json:"patches_total"`
	PatchesPerEvent float64           `json:"patches_per_event"`
	Ops             map[string]uint64 `json:"ops"`
}

type errorInfo struct {
	TotalErrors    uint64 `json:"total_errors"`
	DialFailures   uint64 `json:"dial_failures"`
	EventFailures  uint64 `json:"event_failures"`
	DecodeFailures uint64 `json:"decode_failures"`
	TokenMissing   uint64 `json:"token_missing"`
}

func buildReport(
	cfg benchConfig,
	elapsed time.Duration,
	latencies []time.Duration,
	counters *benchCounters,
	errs *benchErrors,
	ops *patchOpCounts,
	before, after runtime.MemStats,
	beforeMetrics, afterMetrics runtimeMetricsSnapshot,
) benchReport {
	eventsTotal := counters.eventsComplete.Load()
	patchesTotal := counters.patchesTotal.Load()

	latency := latencyInfo{}
	if len(latencies) > 0 {
		latency = latencyInfo{
			Min: ms(latencies[0]),
			P50: ms(percentile(latencies, 0.50)),
			P95: ms(percentile(latencies, 0.95)),
			P99: ms(percentile(latencies, 0.99)),
			Max: ms(latencies[len(latencies)-1]),
		}
	}

	patchesPerEvent := 0.0
	if eventsTotal > 0 {
		patchesPerEvent = float64(patchesTotal) / float64(eventsTotal)
	}
	gcFraction := 0.0
	if total := afterMetrics.cpuTotalSeconds - beforeMetrics.cpuTotalSeconds; total > 0 {
		gcFraction = (afterMetrics.cpuGCSeconds - beforeMetrics.cpuGCSeconds) / total
	}

	return benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
			Revision:  revision(),
		},
		Workload: workloadInfo{
			Profile:        cfg.Profile,
			Clients:        cfg.Clients,
			DurationMS:     cfg.Duration.Milliseconds(),
			RPSPerClient:   cfg.RPS,
			ListSize:       cfg.ListSize,
			PayloadBytes:   cfg.PayloadBytes,
			MaxProcs:       cfg.MaxProcs,
			EventTimeoutMS: cfg.EventTimeout.Milliseconds(),
		},
		LatencyMS: latency,
		Throughput: throughputInfo{
			EventsTotal:  eventsTotal,
			EventsPerSec: float64(eventsTotal) / math.Max(0.001, elapsed.Seconds()),
		},
		GC: gcInfo{
			AllocMB:       float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			NumGC:         after.NumGC - before.NumGC,
			PauseTotalMS:  ms(time.Duration(after.PauseTotalNs - before.PauseTotalNs)),
			GCCPUFraction: gcFraction,
			AllocsObjects: afterMetrics.heapAllocs - beforeMetrics.heapAllocs,
		},
		Patches: patchInfo{
			Frames:          counters.patchFrames.Load(),
			BytesTotal:      counters.patchBytes.Load(),
			PatchesTotal:    patchesTotal,
			PatchesPerEvent: patchesPerEvent,
			Ops:             ops.snapshot(),
		},
		Errors: errorInfo{
			TotalErrors:    errs.totalErrors.Load(),
			DialFailures:   errs.dialFailures.Load(),
			EventFailures:  errs.eventFailures.Load(),
			DecodeFailures: errs.decodeFailures.Load(),
			TokenMissing:   errs.tokenMissing.Load(),
		},
	}
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== vtemplate preview benchmark ===")
	fmt.Fprintf(w, "Profile: %s\n", report.Workload.Profile)
	fmt.Fprintf(w, "Clients: %d\n", report.Workload.Clients)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Target per-client rate: %.2f events/s\n", report.Workload.RPSPerClient)
	fmt.Fprintf(w, "Items: %d\n", report.Workload.ListSize)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total events: %d\n", report.Throughput.EventsTotal)
	fmt.Fprintf(w, "Throughput: %.1f events/s\n", report.Throughput.EventsPerSec)
	fmt.Fprintf(w, "Errors: %d\n", report.Errors.TotalErrors)
	fmt.Fprintln(w)

	if report.LatencyMS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "RTT (POST /events -> patch received):")
		fmt.Fprintf(w, "  min: %.2f ms\n", report.LatencyMS.Min)
		fmt.Fprintf(w, "  p50: %.2f ms\n", report.LatencyMS.P50)
		fmt.Fprintf(w, "  p95: %.2f ms\n", report.LatencyMS.P95)
		fmt.Fprintf(w, "  p99: %.2f ms\n", report.LatencyMS.P99)
		fmt.Fprintf(w, "  max: %.2f ms\n", report.LatencyMS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Patches/event (all clients): %.2f\n", report.Patches.PatchesPerEvent)
	fmt.Fprintf(w, "GC: %d cycles, %.2f ms paused, %.2f%% cpu\n",
		report.GC.NumGC, report.GC.PauseTotalMS, report.GC.GCCPUFraction*100)
}

func writeJSON(path string, report benchReport) error {
	out := io.Writer(os.Stdout)
	if path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// revision returns the VCS revision stamped into the binary, if any.
func revision() string {
	if val := strings.TrimSpace(os.Getenv("VTEMPLATE_REVISION")); val != "" {
		return val
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}
