// Package metrics объявляет метрики Prometheus витрины.
// Метрики регистрируются в реестре по умолчанию и отдаются через /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы попытки входа.
const (
	LoginSuccess     = "success"
	LoginInvalid     = "invalid_credentials"
	LoginLocked      = "locked"
	LoginInterrupted = "interrupted"
)

var (
	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subscribepro",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subscribepro",
			Subsystem: "auth",
			Name:      "registrations_total",
			Help:      "Registered users by role",
		},
		[]string{"role"},
	)

	subscriptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subscribepro",
			Subsystem: "billing",
			Name:      "subscriptions_total",
			Help:      "Created subscriptions, labelled by whether a contract price was applied",
		},
		[]string{"contract_price"},
	)

	invoicesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "subscribepro",
			Subsystem: "billing",
			Name:      "invoices_issued_total",
			Help:      "Invoices issued by the billing scheduler",
		},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "subscribepro",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
)

// LoginAttempt учитывает попытку входа с исходом outcome.
func LoginAttempt(outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
}

// Registration учитывает регистрацию пользователя с ролью role.
func Registration(role string) {
	registrations.WithLabelValues(role).Inc()
}

// SubscriptionCreated учитывает оформленную подписку.
func SubscriptionCreated(contractPrice bool) {
	subscriptions.WithLabelValues(strconv.FormatBool(contractPrice)).Inc()
}

// InvoiceIssued учитывает счет, выставленный планировщиком.
func InvoiceIssued() {
	invoicesIssued.Inc()
}

// Middleware измеряет длительность HTTP‑запросов.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestDuration.WithLabelValues(r.Method, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
