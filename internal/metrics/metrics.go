package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SwapAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swap_attempts_total", Help: "Quote-and-submit attempts started"},
		[]string{"pool"},
	)
	SwapFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swap_failures_total", Help: "Attempts that failed before submission"},
		[]string{"pool"},
	)
	SwapSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swap_submissions_total", Help: "Swap transactions submitted"},
		[]string{"pool"},
	)
	SwapExhaustedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swap_retries_exhausted_total", Help: "Swaps abandoned after the retry bound"},
		[]string{"pool"},
	)
)

func init() {
	prometheus.MustRegister(SwapAttemptsTotal, SwapFailuresTotal, SwapSubmissionsTotal, SwapExhaustedTotal)
}

// Serve exposes /metrics on addr in the background. An empty addr disables it.
func Serve(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
