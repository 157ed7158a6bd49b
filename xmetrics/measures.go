// Package xmetrics registers the Prometheus collectors this library
// exposes, grounded on the teacher's device/metrics.go convention of a flat
// list of named counters handed to a registry at startup.
package xmetrics

import "github.com/prometheus/client_golang/prometheus"

const (
	ConnectCounter        = "castv2_connect_total"
	DisconnectCounter     = "castv2_disconnect_total"
	RequestCounter        = "castv2_requests_total"
	HeartbeatDeadCounter  = "castv2_heartbeat_dead_total"
	ApplicationLaunchedCt = "castv2_applications_launched_total"
)

// Measures is the set of collectors this library increments. The zero
// value is not usable; construct one with NewMeasures.
type Measures struct {
	Connects             prometheus.Counter
	Disconnects          prometheus.Counter
	Requests             *prometheus.CounterVec
	HeartbeatDeaths      prometheus.Counter
	ApplicationsLaunched *prometheus.CounterVec
}

// NewMeasures builds a Measures and registers every collector against
// registerer. Passing prometheus.NewRegistry() keeps metrics isolated to a
// single device.Controller in tests; passing prometheus.DefaultRegisterer
// exposes them process-wide.
func NewMeasures(registerer prometheus.Registerer) *Measures {
	m := &Measures{
		Connects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: ConnectCounter,
			Help: "Number of successful channel connections.",
		}),
		Disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: DisconnectCounter,
			Help: "Number of channel teardowns, clean or otherwise.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: RequestCounter,
			Help: "Number of correlated requests issued, by namespace.",
		}, []string{"namespace"}),
		HeartbeatDeaths: prometheus.NewCounter(prometheus.CounterOpts{
			Name: HeartbeatDeadCounter,
			Help: "Number of times the heartbeat liveness check declared a session dead.",
		}),
		ApplicationsLaunched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: ApplicationLaunchedCt,
			Help: "Number of successful LAUNCH requests, by app id.",
		}, []string{"app_id"}),
	}

	registerer.MustRegister(
		m.Connects,
		m.Disconnects,
		m.Requests,
		m.HeartbeatDeaths,
		m.ApplicationsLaunched,
	)
	return m
}
