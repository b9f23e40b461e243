package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type collector interface {
	write(sb *strings.Builder)
}

type counterVec struct {
	name   string
	help   string
	labels []string

	mu     sync.RWMutex
	values map[string]float64
}

type gaugeVec struct {
	name   string
	help   string
	labels []string

	mu     sync.RWMutex
	values map[string]float64
}

type histogramVec struct {
	name    string
	help    string
	labels  []string
	buckets []float64

	mu     sync.RWMutex
	values map[string]*histogramValue
}

type histogramValue struct {
	counts []uint64
	sum    float64
	total  uint64
}

// Directions used as label values.
const (
	DirectionEncode = "encode"
	DirectionDecode = "decode"
)

var (
	collectors []collector

	operations     = newCounterVec("ebh_operations_total", "Number of messages processed, by operation and direction.", []string{"op", "direction"})
	operationBytes = newCounterVec("ebh_operation_bytes_total", "Input bytes processed, by direction.", []string{"direction"})
	decodeErrors   = newCounterVec("ebh_decode_errors_total", "Number of rejected encoded messages, by reason.", []string{"reason"})
	operationTime  = newHistogramVec("ebh_operation_duration_seconds", "Time spent encoding or decoding a message.", []string{"direction"})
	inflight       = newGaugeVec("ebh_inflight_requests", "Requests currently being served.", nil)
	rpcRequests    = newCounterVec("ebh_rpc_requests_total", "Total number of requests handled, by component and method.", []string{"component", "method"})
	rpcErrors      = newCounterVec("ebh_rpc_errors_total", "Total number of failed requests, by component, method and code.", []string{"component", "method", "code"})
	rpcLatency     = newHistogramVec("ebh_rpc_duration_seconds", "Latency of request handlers by component, method and code.", []string{"component", "method", "code"})
	inflightCount  int64
	totalRequests  uint64
	defaultBuckets = []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
)

func init() {
	collectors = []collector{operations, operationBytes, decodeErrors, operationTime, inflight, rpcRequests, rpcErrors, rpcLatency}
}

func newCounterVec(name, help string, labels []string) *counterVec {
	return &counterVec{name: name, help: help, labels: labels, values: make(map[string]float64)}
}

func newGaugeVec(name, help string, labels []string) *gaugeVec {
	return &gaugeVec{name: name, help: help, labels: labels, values: make(map[string]float64)}
}

func newHistogramVec(name, help string, labels []string) *histogramVec {
	return &histogramVec{
		name:    name,
		help:    help,
		labels:  labels,
		buckets: defaultBuckets,
		values:  make(map[string]*histogramValue),
	}
}

func labelKey(labels, values []string) string {
	if len(values) != len(labels) {
		panic(fmt.Sprintf("expected %d labels, got %d", len(labels), len(values)))
	}
	return strings.Join(values, "\x00")
}

func (cv *counterVec) AddWith(delta float64, values ...string) {
	key := labelKey(cv.labels, values)
	cv.mu.Lock()
	cv.values[key] += delta
	cv.mu.Unlock()
}

func (cv *counterVec) IncWith(values ...string) {
	cv.AddWith(1, values...)
}

func (cv *counterVec) value(values ...string) float64 {
	key := labelKey(cv.labels, values)
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	return cv.values[key]
}

func (cv *counterVec) write(sb *strings.Builder) {
	writeHeader(sb, cv.name, cv.help, "counter")
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	for _, key := range sortedKeys(cv.values) {
		sb.WriteString(cv.name)
		writeLabels(sb, cv.labels, key, "")
		fmt.Fprintf(sb, " %g\n", cv.values[key])
	}
}

func (gv *gaugeVec) Set(values []string, v float64) {
	key := labelKey(gv.labels, values)
	gv.mu.Lock()
	gv.values[key] = v
	gv.mu.Unlock()
}

func (gv *gaugeVec) write(sb *strings.Builder) {
	writeHeader(sb, gv.name, gv.help, "gauge")
	gv.mu.RLock()
	defer gv.mu.RUnlock()
	for _, key := range sortedKeys(gv.values) {
		sb.WriteString(gv.name)
		writeLabels(sb, gv.labels, key, "")
		fmt.Fprintf(sb, " %g\n", gv.values[key])
	}
}

func (hv *histogramVec) Observe(values []string, sample float64) {
	key := labelKey(hv.labels, values)
	hv.mu.Lock()
	defer hv.mu.Unlock()
	entry, ok := hv.values[key]
	if !ok {
		entry = &histogramValue{counts: make([]uint64, len(hv.buckets)+1)}
		hv.values[key] = entry
	}
	entry.sum += sample
	entry.total++
	i := sort.SearchFloat64s(hv.buckets, sample)
	entry.counts[i]++
}

func (hv *histogramVec) write(sb *strings.Builder) {
	writeHeader(sb, hv.name, hv.help, "histogram")
	hv.mu.RLock()
	defer hv.mu.RUnlock()
	keys := make([]string, 0, len(hv.values))
	for k := range hv.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		entry := hv.values[key]
		cumulative := uint64(0)
		for i, upper := range hv.buckets {
			cumulative += entry.counts[i]
			sb.WriteString(hv.name)
			sb.WriteString("_bucket")
			writeLabels(sb, hv.labels, key, fmt.Sprintf("le=\"%g\"", upper))
			fmt.Fprintf(sb, " %d\n", cumulative)
		}
		cumulative += entry.counts[len(hv.buckets)]
		sb.WriteString(hv.name)
		sb.WriteString("_bucket")
		writeLabels(sb, hv.labels, key, "le=\"+Inf\"")
		fmt.Fprintf(sb, " %d\n", cumulative)

		sb.WriteString(hv.name)
		sb.WriteString("_sum")
		writeLabels(sb, hv.labels, key, "")
		fmt.Fprintf(sb, " %g\n", entry.sum)
		sb.WriteString(hv.name)
		sb.WriteString("_count")
		writeLabels(sb, hv.labels, key, "")
		fmt.Fprintf(sb, " %d\n", entry.total)
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// writeLabels renders {a="x",b="y"} for a joined label key, with extra
// appended verbatim. Nothing is written when there are no pairs.
func writeLabels(sb *strings.Builder, labels []string, key, extra string) {
	if len(labels) == 0 && extra == "" {
		return
	}
	sb.WriteString("{")
	if len(labels) > 0 {
		parts := strings.Split(key, "\x00")
		for i, label := range labels {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(label)
			sb.WriteString("=\"")
			sb.WriteString(escapeLabel(parts[i]))
			sb.WriteString("\"")
		}
		if extra != "" {
			sb.WriteString(",")
		}
	}
	sb.WriteString(extra)
	sb.WriteString("}")
}

func writeHeader(sb *strings.Builder, name, help, metricType string) {
	sb.WriteString("# HELP ")
	sb.WriteString(name)
	sb.WriteString(" ")
	sb.WriteString(help)
	sb.WriteString("\n# TYPE ")
	sb.WriteString(name)
	sb.WriteString(" ")
	sb.WriteString(metricType)
	sb.WriteString("\n")
}

func escapeLabel(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\n", "\\n")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}

// Handler exposes the metrics registry as an http.Handler compatible with Prometheus.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var sb strings.Builder
		for _, collector := range collectors {
			collector.write(&sb)
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(sb.String()))
	})
}

// ObserveOperation records one encode or decode of size input bytes.
func ObserveOperation(op, direction string, size int, dur time.Duration) {
	operations.IncWith(op, direction)
	operationBytes.AddWith(float64(size), direction)
	operationTime.Observe([]string{direction}, dur.Seconds())
}

// RecordDecodeError counts a rejected message. reason is normally
// DecodeError.Reason().
func RecordDecodeError(reason string) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	decodeErrors.IncWith(reason)
}

// IncInflight marks a request as started and returns the function that
// marks it finished.
func IncInflight() (done func()) {
	inflight.Set(nil, float64(atomic.AddInt64(&inflightCount, 1)))
	var once sync.Once
	return func() {
		once.Do(func() {
			inflight.Set(nil, float64(atomic.AddInt64(&inflightCount, -1)))
		})
	}
}

// RecordRPCRequest increments the request counter for a component and method.
func RecordRPCRequest(component, method string) {
	rpcRequests.IncWith(component, method)
	atomic.AddUint64(&totalRequests, 1)
}

// RecordRPCError increments the error counter for a component, method, and error code.
func RecordRPCError(component, method, code string) {
	rpcErrors.IncWith(component, method, code)
}

// ObserveRPCLatency records the duration spent serving a method and tags it by status code.
func ObserveRPCLatency(component, method, code string, dur time.Duration) {
	rpcLatency.Observe([]string{component, method, code}, dur.Seconds())
}

// TotalRequests returns the total number of requests served since process start.
func TotalRequests() uint64 {
	return atomic.LoadUint64(&totalRequests)
}

// Inflight returns the number of requests currently being served.
func Inflight() int64 {
	return atomic.LoadInt64(&inflightCount)
}
