package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMetricsWritePrometheus(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/chat/", 200, 20*time.Millisecond)
	m.ObserveAPI("POST", "/chat/", 200, 30*time.Millisecond)
	m.IncModelRetry("rate_limited")
	m.ObserveSessionOp("create", nil)
	m.ObserveSessionOp("create", errors.New("boom"))

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`docinsight_http_requests_total{method="POST",route="/chat/",status="200"} 2`,
		`docinsight_model_retries_total{reason="rate_limited"} 1`,
		`docinsight_session_ops_total{op="create",status="error"} 1`,
		`docinsight_http_request_seconds_count{method="POST",route="/chat/"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", 200, time.Millisecond)
	m.IncModelRetry("timeout")
	m.SetRedisUp(true)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil metrics should write nothing: %v", err)
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"route"}, []string{`a"b`})
	if got != `{route="a\"b"}` {
		t.Fatalf("labelString=%s", got)
	}
}
