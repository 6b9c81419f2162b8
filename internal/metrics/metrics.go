package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can create as many as they like.
// All methods are safe to call on a nil *Collector.
type Collector struct {
	reg *prometheus.Registry

	ShiftsStarted   prometheus.Counter
	ShiftsCompleted prometheus.Counter
	ShiftRejections *prometheus.CounterVec // reason label

	LocationsAccepted prometheus.Counter
	LocationsRejected *prometheus.CounterVec // reason label: validation|no_active_shift|forbidden

	LatestDuration prometheus.Histogram
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	CleanupRuns    prometheus.Counter
	CleanupDeleted prometheus.Counter
	RetentionHours prometheus.Gauge
}

func NewCollector(retention time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ShiftsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_shifts_started_total",
			Help: "Total shifts started.",
		}),
		ShiftsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_shifts_completed_total",
			Help: "Total shifts completed.",
		}),
		ShiftRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_shift_start_rejections_total",
			Help: "Shift start attempts rejected by a precondition.",
		}, []string{"reason"}),
		LocationsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_locations_accepted_total",
			Help: "Total location samples stored.",
		}),
		LocationsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_locations_rejected_total",
			Help: "Location reports rejected before storage.",
		}, []string{"reason"}),
		LatestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_latest_query_duration_seconds",
			Help:    "Duration of the latest-position storage query.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_latest_cache_hits_total",
			Help: "Latest-position cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_latest_cache_misses_total",
			Help: "Latest-position cache misses.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		CleanupRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_cleanup_runs_total",
			Help: "Retention cleanup runs.",
		}),
		CleanupDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_cleanup_deleted_total",
			Help: "Location samples deleted by retention cleanup.",
		}),
		RetentionHours: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_retention_hours",
			Help: "Configured retention horizon in hours.",
		}),
	}

	reg.MustRegister(
		c.ShiftsStarted, c.ShiftsCompleted, c.ShiftRejections,
		c.LocationsAccepted, c.LocationsRejected,
		c.LatestDuration, c.CacheHits, c.CacheMisses,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.CleanupRuns, c.CleanupDeleted, c.RetentionHours,
	)

	c.RetentionHours.Set(retention.Hours())

	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}

func (c *Collector) ShiftStarted() {
	if c != nil {
		c.ShiftsStarted.Inc()
	}
}

func (c *Collector) ShiftCompleted() {
	if c != nil {
		c.ShiftsCompleted.Inc()
	}
}

func (c *Collector) ShiftRejected(reason string) {
	if c != nil {
		c.ShiftRejections.WithLabelValues(reason).Inc()
	}
}

func (c *Collector) LocationAccepted() {
	if c != nil {
		c.LocationsAccepted.Inc()
	}
}

func (c *Collector) LocationRejected(reason string) {
	if c != nil {
		c.LocationsRejected.WithLabelValues(reason).Inc()
	}
}

func (c *Collector) LatestObserve(d time.Duration) {
	if c != nil {
		c.LatestDuration.Observe(d.Seconds())
	}
}

func (c *Collector) CacheHit() {
	if c != nil {
		c.CacheHits.Inc()
	}
}

func (c *Collector) CacheMiss() {
	if c != nil {
		c.CacheMisses.Inc()
	}
}

// The four methods below satisfy events.PublisherMetrics.

func (c *Collector) NATSPublishedInc() {
	if c != nil {
		c.NATSPublished.Inc()
	}
}

func (c *Collector) NATSPublishErrInc() {
	if c != nil {
		c.NATSPublishErrs.Inc()
	}
}

func (c *Collector) PublishObserve(d time.Duration) {
	if c != nil {
		c.PublishDuration.Observe(d.Seconds())
	}
}

func (c *Collector) NATSSetConnected(connected bool) {
	if c == nil {
		return
	}
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}

func (c *Collector) CleanupObserve(deleted int64) {
	if c != nil {
		c.CleanupRuns.Inc()
		c.CleanupDeleted.Add(float64(deleted))
	}
}
