// Package metric provides RED (rate, errors, duration) instrumentation for
// service middleware.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openshelf/openshelf"
)

// REDClient records calls, errors and durations for one service.
type REDClient struct {
	calls    *prometheus.CounterVec
	errs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New registers and returns a REDClient for the named service.
func New(reg prometheus.Registerer, service string) *REDClient {
	c := &REDClient{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "service",
			Subsystem: service,
			Name:      "call_total",
			Help:      "Number of calls",
		}, []string{"method"}),
		errs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "service",
			Subsystem: service,
			Name:      "error_total",
			Help:      "Number of errors encountered when making the call",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "service",
			Subsystem: service,
			Name:      "duration",
			Help:      "Duration of calls",
			Buckets:   prometheus.ExponentialBuckets(0.001, 5, 7),
		}, []string{"method"}),
	}
	reg.MustRegister(c.calls, c.errs, c.duration)
	return c
}

// Record starts a recording for the named method. The returned func stops the
// recording, counts the call and any error, and passes the error through.
func (c *REDClient) Record(method string) func(error) error {
	start := time.Now()
	return func(err error) error {
		c.calls.With(prometheus.Labels{"method": method}).Inc()
		c.duration.With(prometheus.Labels{"method": method}).Observe(time.Since(start).Seconds())
		if err != nil {
			c.errs.With(prometheus.Labels{
				"method": method,
				"code":   openshelf.ErrorCode(err),
			}).Inc()
		}
		return err
	}
}
