package bot

import (
	"net/http"
	"time"

	"discord-antinuke-bot/internal/metrics"
)

// RESTTransport wraps an http.RoundTripper to record REST latency
type RESTTransport struct {
	Base http.RoundTripper
}

func (t *RESTTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	metrics.RESTLatency.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	return resp, err
}
