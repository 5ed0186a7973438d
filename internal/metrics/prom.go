package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "taskbalancer_build_info",
			Help:        "Build information",
			ConstLabels: prometheus.Labels{"component": "controller"},
		},
		[]string{"version"},
	)

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskbalancer_operations_total",
			Help: "Scheduler operations by outcome status",
		},
		[]string{"op", "status"},
	)

	registeredNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskbalancer_registered_nodes",
			Help: "Number of registered nodes",
		},
	)

	tasks = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "taskbalancer_tasks",
			Help: "Number of known tasks by placement state",
		},
		[]string{"state"},
	)

	nodeLoad = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "taskbalancer_node_load",
			Help: "Total consumption placed on a node",
		},
		[]string{"node_id"},
	)

	planSpread = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskbalancer_plan_max_diff",
			Help: "Maximum pairwise load difference of the last committed plan",
		},
	)
)

// Register registers all metrics with the provided registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, operations, registeredNodes, tasks, nodeLoad, planSpread)
}

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}

// RecordOperation counts one scheduler operation outcome.
func RecordOperation(op, status string) {
	operations.WithLabelValues(op, status).Inc()
}

// SetRegistrySize publishes node and task counts.
func SetRegistrySize(nodes, pending, placed int) {
	registeredNodes.Set(float64(nodes))
	tasks.WithLabelValues("pending").Set(float64(pending))
	tasks.WithLabelValues("placed").Set(float64(placed))
}

// SetNodeLoads replaces the per-node load series.
func SetNodeLoads(loads map[int]int) {
	nodeLoad.Reset()
	for id, l := range loads {
		nodeLoad.WithLabelValues(strconv.Itoa(id)).Set(float64(l))
	}
}

// SetPlanSpread records the spread of the last committed plan.
func SetPlanSpread(d int) {
	planSpread.Set(float64(d))
}
