package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RepositoryMutations counts device-collection mutations by operation.
	RepositoryMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tortoise_repository_mutations_total",
		Help: "Device collection mutations, labeled by operation.",
	}, []string{"op"})

	// LeasesRecorded counts lease orders appended to the order log.
	LeasesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tortoise_leases_recorded_total",
		Help: "Lease orders recorded by the marketplace.",
	})

	// PollCycles counts completed storage sync cycles.
	PollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tortoise_poll_cycles_total",
		Help: "Completed shared-storage polling cycles.",
	})

	// NotificationsSent counts web push deliveries by outcome.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tortoise_notifications_total",
		Help: "Web push notifications attempted, labeled by result.",
	}, []string{"result"})
)
