package bench

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/emergent-company/moviebench/pkg/apperror"
)

var (
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moviebench_operation_duration_seconds",
		Help:    "Latency of benchmark operations",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 18),
	}, []string{"benchmark", "outcome"})

	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moviebench_operations_total",
		Help: "Total number of benchmark operations by outcome",
	}, []string{"benchmark", "outcome"})

	LifecycleRowsAffected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moviebench_lifecycle_rows_affected_total",
		Help: "Rows changed by setup and cleanup steps",
	}, []string{"benchmark", "step"})
)

const outcomeOK = "ok"

// outcome labels a result: "ok", the apperror code, or "error".
func outcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "error"
}
