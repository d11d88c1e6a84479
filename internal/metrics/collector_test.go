package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollector_CounterIsShared(t *testing.T) {
	c := NewMetricsCollector()
	a := c.Counter("x_total", "x")
	b := c.Counter("x_total", "x")
	a.Inc()
	b.Inc()
	if a.Value() != 2 {
		t.Fatalf("expected same counter instance, value=%d", a.Value())
	}
}

func TestCollector_Render(t *testing.T) {
	c := NewMetricsCollector()
	c.Counter("b_total", "second").Inc()
	c.Counter("a_total", "first")
	c.Gauge("g", "gauge").Set(7)
	h := c.Histogram("lat_seconds", "latency", []float64{5, 1})
	h.Observe(0.5)
	h.Observe(3)
	h.Observe(10)

	out := c.Render()
	for _, want := range []string{
		"# TYPE a_total counter\na_total 0\n",
		"b_total 1\n",
		"g 7\n",
		`lat_seconds_bucket{le="1"} 1`,
		`lat_seconds_bucket{le="5"} 2`,
		`lat_seconds_bucket{le="+Inf"} 3`,
		"lat_seconds_count 3\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, "a_total") > strings.Index(out, "b_total") {
		t.Fatal("counters should be sorted by name")
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewMetricsCollector()
	c.Counter("hits_total", "hits").Inc()

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "hits_total 1") {
		t.Fatalf("unexpected body:\n%s", body)
	}
}
