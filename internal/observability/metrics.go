package observability

import (
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Metrics is the process-wide collector set exposed on /metrics.
type Metrics struct {
	apiRequests  *CounterVec
	apiLatency   *HistogramVec
	apiInflight  *Gauge
	modelCalls   *CounterVec
	modelRetries *CounterVec
	modelLatency *HistogramVec
	sessionOps   *CounterVec
	analyses     *CounterVec
	redisUp      *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests:  NewCounterVec("docinsight_http_requests_total", "HTTP requests by method, route and status.", []string{"method", "route", "status"}),
		apiLatency:   NewHistogramVec("docinsight_http_request_seconds", "HTTP request latency.", []string{"method", "route"}, nil),
		apiInflight:  NewGauge("docinsight_http_inflight", "HTTP requests currently being served."),
		modelCalls:   NewCounterVec("docinsight_model_calls_total", "Generative model calls by outcome.", []string{"outcome"}),
		modelRetries: NewCounterVec("docinsight_model_retries_total", "Generative model retries by reason.", []string{"reason"}),
		modelLatency: NewHistogramVec("docinsight_model_call_seconds", "Generative model call latency including retries.", []string{"outcome"}, nil),
		sessionOps:   NewCounterVec("docinsight_session_ops_total", "Session store operations.", []string{"op", "status"}),
		analyses:     NewCounterVec("docinsight_analyses_total", "Analysis runs by mode and enrichment outcome.", []string{"mode", "enrichment"}),
		redisUp:      NewGauge("docinsight_redis_up", "1 when the last Redis ping succeeded."),
	}
}

// Init creates the shared instance on first use.
func Init() *Metrics {
	initOnce.Do(func() { instance = NewMetrics() })
	return instance
}

// Current returns the shared instance or nil if metrics were never enabled.
// All methods are nil-safe.
func Current() *Metrics {
	return instance
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.modelCalls, m.modelRetries, m.modelLatency,
		m.sessionOps, m.analyses, m.redisUp,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, strconv.Itoa(status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) APIInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ObserveModelCall(outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.modelCalls.Inc(outcome)
	m.modelLatency.Observe(dur.Seconds(), outcome)
}

func (m *Metrics) IncModelRetry(reason string) {
	if m != nil {
		m.modelRetries.Inc(reason)
	}
}

func (m *Metrics) ObserveSessionOp(op string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.sessionOps.Inc(op, status)
}

func (m *Metrics) ObserveAnalysis(mode string, degraded bool) {
	if m == nil {
		return
	}
	enrichment := "ok"
	if degraded {
		enrichment = "degraded"
	}
	m.analyses.Inc(mode, enrichment)
}

func (m *Metrics) SetRedisUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.redisUp.Set(1)
		return
	}
	m.redisUp.Set(0)
}
