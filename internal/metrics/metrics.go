package metrics

import (
	"strconv"
	"time"

	"github.com/fadilmartias/ats-resume-bot/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "atsbot"

// Collector holds the bot's prometheus series. It satisfies the usecase
// observer so the state machine can report without importing prometheus.
type Collector struct {
	gatherer prometheus.Gatherer

	transitions      *prometheus.CounterVec
	rejections       *prometheus.CounterVec
	rewrites         *prometheus.CounterVec
	verifications    *prometheus.CounterVec
	deliveries       prometheus.Counter
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	requestsInFlight prometheus.Gauge
}

// New registers every series on reg.
func New(reg *prometheus.Registry) *Collector {
	c := &Collector{
		gatherer: reg,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session state transitions.",
		}, []string{"from", "to"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "rejected_inputs_total",
			Help:      "Inputs rejected without changing the session.",
		}, []string{"reason"}),
		rewrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewrite",
			Name:      "total",
			Help:      "Resume rewrites by path.",
		}, []string{"path"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "verifications_total",
			Help:      "Payment verification outcomes.",
		}, []string{"result"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "deliveries_total",
			Help:      "PDFs delivered after payment.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests.",
		}, []string{"method", "path", "status"}),
		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "HTTP requests being served.",
		}),
	}
	reg.MustRegister(
		c.transitions, c.rejections, c.rewrites, c.verifications, c.deliveries,
		c.requestDuration, c.requestTotal, c.requestsInFlight,
	)
	return c
}

func (c *Collector) Transition(from, to session.State) {
	c.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (c *Collector) Rejected(reason string) {
	c.rejections.WithLabelValues(reason).Inc()
}

func (c *Collector) Rewrite(usedFallback bool) {
	path := "provider"
	if usedFallback {
		path = "fallback"
	}
	c.rewrites.WithLabelValues(path).Inc()
}

func (c *Collector) PaymentVerification(result string) {
	c.verifications.WithLabelValues(result).Inc()
}

func (c *Collector) Delivered() {
	c.deliveries.Inc()
}

// Middleware records latency and status per route pattern.
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		c.requestsInFlight.Inc()
		defer c.requestsInFlight.Dec()

		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		path := ctx.Route().Path
		if path == "" {
			path = "unmatched"
		}
		labels := prometheus.Labels{
			"method": ctx.Method(),
			"path":   path,
			"status": strconv.Itoa(status),
		}
		c.requestDuration.With(labels).Observe(time.Since(start).Seconds())
		c.requestTotal.With(labels).Inc()
		return err
	}
}

func (c *Collector) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{}))
}
