// Package metrics aggregates in-memory counters and gauges and renders them
// in Prometheus text format.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// Recorder aggregates metrics for HTTP requests, stream lifecycle events,
// chat activity, and video provider calls. It coordinates concurrent writers
// via a RWMutex while exposing a thread-safe gauge for active stream
// tracking.
type Recorder struct {
	mu               sync.RWMutex
	requestCount     map[requestLabel]uint64
	requestDuration  map[requestLabel]time.Duration
	streamEvents     map[string]uint64
	chatEvents       map[string]uint64
	providerAttempts map[string]uint64
	providerFailures map[string]uint64
	activeStreams    atomic.Int64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers
// can immediately record metrics without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:     make(map[requestLabel]uint64),
		requestDuration:  make(map[requestLabel]time.Duration),
		streamEvents:     make(map[string]uint64),
		chatEvents:       make(map[string]uint64),
		providerAttempts: make(map[string]uint64),
		providerFailures: make(map[string]uint64),
	}
}

// Default returns the singleton Recorder shared by packages that do not
// require a custom instrumentation pipeline.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest accumulates request count and cumulative duration by HTTP
// method, normalized path, and status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// StreamStarted records a start lifecycle event and increments the active
// stream gauge.
func (r *Recorder) StreamStarted() {
	r.incrementStreamEvent("start")
	r.activeStreams.Add(1)
}

// StreamStopped records a stop lifecycle event and decrements the active
// stream gauge, guarding against negative counts when concurrent updates
// race.
func (r *Recorder) StreamStopped() {
	r.incrementStreamEvent("stop")
	r.decrementGauge(&r.activeStreams)
}

func (r *Recorder) incrementStreamEvent(event string) {
	r.mu.Lock()
	r.streamEvents[normalizeName(event)]++
	r.mu.Unlock()
}

// ObserveChatEvent records a chat event type for throughput monitoring.
func (r *Recorder) ObserveChatEvent(event string) {
	r.mu.Lock()
	r.chatEvents[normalizeName(event)]++
	r.mu.Unlock()
}

// ObserveProviderAttempt records a video provider operation attempt keyed by
// operation name (e.g., "create_live_stream", "reset_stream_key").
func (r *Recorder) ObserveProviderAttempt(operation string) {
	r.mu.Lock()
	r.providerAttempts[normalizeName(operation)]++
	r.mu.Unlock()
}

// ObserveProviderFailure records a failed provider operation. The caller
// records the attempt separately.
func (r *Recorder) ObserveProviderFailure(operation string) {
	r.mu.Lock()
	r.providerFailures[normalizeName(operation)]++
	r.mu.Unlock()
}

// ActiveStreams exposes the current gauge of concurrently live streams.
func (r *Recorder) ActiveStreams() int64 {
	return r.activeStreams.Load()
}

// ProviderCounts returns copies of provider attempt and failure counters for
// tests and reporting.
func (r *Recorder) ProviderCounts() (attempts map[string]uint64, failures map[string]uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	attempts = make(map[string]uint64, len(r.providerAttempts))
	for k, v := range r.providerAttempts {
		attempts[k] = v
	}
	failures = make(map[string]uint64, len(r.providerFailures))
	for k, v := range r.providerFailures {
		failures[k] = v
	}
	return attempts, failures
}

// Reset clears all counters and gauges. It is intended for test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.streamEvents = make(map[string]uint64)
	r.chatEvents = make(map[string]uint64)
	r.providerAttempts = make(map[string]uint64)
	r.providerFailures = make(map[string]uint64)
	r.activeStreams.Store(0)
}

// Handler exposes the Recorder as an http.Handler that writes Prometheus
// text exposition data with the appropriate content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the metrics in Prometheus text format, sorting label sets to
// provide stable output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	streamEvents := sortedKeys(r.streamEvents)
	chatEvents := sortedKeys(r.chatEvents)
	providerOperations := r.sortedProviderOperations()

	fmt.Fprintln(w, "# HELP sparkz_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE sparkz_http_requests_total counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "sparkz_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, r.requestCount[label])
	}

	fmt.Fprintln(w, "# HELP sparkz_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE sparkz_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "sparkz_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, r.requestDuration[label].Seconds())
	}

	fmt.Fprintln(w, "# HELP sparkz_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE sparkz_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "sparkz_http_request_duration_seconds_count{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, r.requestCount[label])
	}

	fmt.Fprintln(w, "# HELP sparkz_stream_events_total Stream lifecycle events by type")
	fmt.Fprintln(w, "# TYPE sparkz_stream_events_total counter")
	for _, event := range streamEvents {
		fmt.Fprintf(w, "sparkz_stream_events_total{event=\"%s\"} %d\n", event, r.streamEvents[event])
	}

	fmt.Fprintln(w, "# HELP sparkz_active_streams Current number of sessions marked as live")
	fmt.Fprintln(w, "# TYPE sparkz_active_streams gauge")
	fmt.Fprintf(w, "sparkz_active_streams %d\n", r.activeStreams.Load())

	fmt.Fprintln(w, "# HELP sparkz_chat_events_total Chat events by type")
	fmt.Fprintln(w, "# TYPE sparkz_chat_events_total counter")
	for _, event := range chatEvents {
		fmt.Fprintf(w, "sparkz_chat_events_total{event=\"%s\"} %d\n", event, r.chatEvents[event])
	}

	fmt.Fprintln(w, "# HELP sparkz_provider_attempts_total Video provider operations attempted by action")
	fmt.Fprintln(w, "# TYPE sparkz_provider_attempts_total counter")
	for _, op := range providerOperations {
		fmt.Fprintf(w, "sparkz_provider_attempts_total{operation=\"%s\"} %d\n", op, r.providerAttempts[op])
	}

	fmt.Fprintln(w, "# HELP sparkz_provider_failures_total Video provider operation failures by action")
	fmt.Fprintln(w, "# TYPE sparkz_provider_failures_total counter")
	for _, op := range providerOperations {
		fmt.Fprintf(w, "sparkz_provider_failures_total{operation=\"%s\"} %d\n", op, r.providerFailures[op])
	}
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func (r *Recorder) sortedProviderOperations() []string {
	seen := make(map[string]struct{}, len(r.providerAttempts)+len(r.providerFailures))
	for op := range r.providerAttempts {
		seen[op] = struct{}{}
	}
	for op := range r.providerFailures {
		seen[op] = struct{}{}
	}
	ops := make([]string, 0, len(seen))
	for op := range seen {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if looksLikeIdentifier(part) {
			parts[i] = ":id"
		}
	}
	normalized := strings.Join(parts, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasSuffix(normalized, "/") && len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if len(segment) >= 16 {
		return true
	}
	digitCount := 0
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			digitCount++
		}
	}
	return digitCount >= 3
}

func (r *Recorder) decrementGauge(gauge *atomic.Int64) {
	for {
		current := gauge.Load()
		if current <= 0 {
			return
		}
		if gauge.CompareAndSwap(current, current-1) {
			return
		}
	}
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
