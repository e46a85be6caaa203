package middleware

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	rpcRequests *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec

	settlements         *prometheus.CounterVec
	invariantViolations *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		rpcRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitledger",
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and Connect code.",
		}, []string{"procedure", "code"}),
		rpcDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "splitledger",
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitledger",
			Name:      "settlements_total",
			Help:      "Settlement requests by outcome (recorded, replayed).",
		}, []string{"outcome"}),
		invariantViolations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitledger",
			Name:      "invariant_violations_total",
			Help:      "Ledger invariant checks that failed, by error code.",
		}, []string{"code"}),
	}
}

// Interceptor records a request count and latency for every RPC.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeUnknown.String()
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					code = connectErr.Code().String()
				}
			}
			m.rpcRequests.WithLabelValues(procedure, code).Inc()
			m.rpcDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			return resp, err
		}
	}
}

// SettlementRecorded counts a newly written settlement.
func (m *Metrics) SettlementRecorded() {
	m.settlements.WithLabelValues("recorded").Inc()
}

// SettlementReplayed counts a retry answered from an earlier settlement.
func (m *Metrics) SettlementReplayed() {
	m.settlements.WithLabelValues("replayed").Inc()
}

// InvariantViolated counts a failed ledger invariant check.
func (m *Metrics) InvariantViolated(code string) {
	m.invariantViolations.WithLabelValues(code).Inc()
}
