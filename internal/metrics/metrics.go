// Package metrics exposes Prometheus counters for pipeline outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pretrade_validations_total", Help: "Validation runs by outcome and halting stage"},
		[]string{"stage", "result"},
	)
	PlansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pretrade_plans_total", Help: "Execution plans produced by product type"},
		[]string{"product"},
	)
)

func init() {
	prometheus.MustRegister(ValidationsTotal, PlansTotal)
}

// RecordValidation 记录一次管线结束。result 为 success/failed/error，
// stage 为拦截阶段名，成功时传空。
func RecordValidation(stage, result string) {
	if stage == "" {
		stage = "none"
	}
	ValidationsTotal.WithLabelValues(stage, result).Inc()
}

// RecordPlan 记录一份产出的执行计划。
func RecordPlan(product string) {
	if product == "" {
		product = "unknown"
	}
	PlansTotal.WithLabelValues(product).Inc()
}

// Serve 在 addr 上暴露 /metrics，返回 server 便于调用方关闭。
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
