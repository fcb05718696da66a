// Package telemetry exposes Prometheus metrics for reminder fires and store writes.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	once sync.Once

	// Fires counts reminder deliveries by kind and outcome (sent, failed, missing).
	Fires *prometheus.CounterVec
	// StoreWrites counts collection rewrites by kind and outcome (ok, failed).
	StoreWrites *prometheus.CounterVec
	// ActiveJobs is the number of live scheduler jobs.
	ActiveJobs prometheus.Gauge
	// DeliveryDuration observes notification send latency in seconds.
	DeliveryDuration prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		Fires = promauto.NewCounterVec(prometheus.CounterOpts{Name: "reminder_fires_total", Help: "Reminder fires by kind and outcome"}, []string{"kind", "outcome"})
		StoreWrites = promauto.NewCounterVec(prometheus.CounterOpts{Name: "reminder_store_writes_total", Help: "Record collection rewrites by kind and outcome"}, []string{"kind", "outcome"})
		ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{Name: "reminder_active_jobs", Help: "Live scheduler jobs"})
		DeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "reminder_delivery_duration_seconds", Help: "Notification delivery duration seconds", Buckets: prometheus.DefBuckets})
	})
}

// RecordFire increments the fire counter if metrics are initialized.
func RecordFire(kind, outcome string) {
	if Fires != nil {
		Fires.WithLabelValues(kind, outcome).Inc()
	}
}

// RecordStoreWrite increments the store write counter if metrics are initialized.
func RecordStoreWrite(kind string, err error) {
	if StoreWrites == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	StoreWrites.WithLabelValues(kind, outcome).Inc()
}

// SetActiveJobs records the current job count.
func SetActiveJobs(n int) {
	if ActiveJobs != nil {
		ActiveJobs.Set(float64(n))
	}
}

// TimeFunc measures fn and records the duration in obs if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Serve exposes /metrics on addr until ctx is cancelled. An empty addr disables it.
func Serve(ctx context.Context, addr string, log *logrus.Entry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		log.WithField("addr", addr).Info("Metrics endpoint listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics endpoint failed")
		}
	}()
}
