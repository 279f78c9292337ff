package extract

// Penalties applied to the health score. The score starts at 100 and is
// intentionally not clamped; stacked penalties may push it below zero.
const (
	healthBase            = 100
	healthErrorPenalty    = 50
	healthDurationPenalty = 20
	healthMemoryPenalty   = 10

	slowDurationMS        = 1000
	highMemoryUtilization = 80
)

// Derived holds metrics computed from already-extracted fields. Memory
// utilization and cost are absent when their inputs are missing; the
// health score always has a value once a record exists.
type Derived struct {
	MemoryUtilization *float64 `json:"memory_utilization,omitempty"`
	CostGBSeconds     *float64 `json:"cost_gb_seconds,omitempty"`
	HealthScore       int      `json:"health_score"`
}

// Derive computes memory utilization, the GB-seconds cost estimate and the
// composite health score from one record's performance and error fields.
// Pure function: identical inputs always yield identical outputs.
func Derive(perf PerformanceMetrics, errInfo ErrorInfo) Derived {
	derived := Derived{HealthScore: healthBase}

	if perf.MemoryUsedMB != nil && perf.MaxMemoryMB != nil && *perf.MaxMemoryMB != 0 {
		utilization := float64(*perf.MemoryUsedMB) / float64(*perf.MaxMemoryMB) * 100
		derived.MemoryUtilization = &utilization
	}

	if perf.DurationMS != nil && perf.MemoryUsedMB != nil {
		gbMemory := float64(*perf.MemoryUsedMB) / 1024
		seconds := *perf.DurationMS / 1000
		cost := gbMemory * seconds
		derived.CostGBSeconds = &cost
	}

	if errInfo.HasError {
		derived.HealthScore -= healthErrorPenalty
	}
	if perf.DurationMS != nil && *perf.DurationMS > slowDurationMS {
		derived.HealthScore -= healthDurationPenalty
	}
	if derived.MemoryUtilization != nil && *derived.MemoryUtilization > highMemoryUtilization {
		derived.HealthScore -= healthMemoryPenalty
	}

	return derived
}
