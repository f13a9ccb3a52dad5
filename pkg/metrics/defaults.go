package metrics

import "sync"

// Default metrics for the router.
// These are initialized by calling Init().
var (
	// SessionsTotal counts sessions that have completed a handshake.
	SessionsTotal *Counter

	// ActiveSessions is a gauge of currently connected sessions.
	// Labels: realm
	ActiveSessions *Gauge

	// RealmsTotal is a gauge of the number of configured realms.
	RealmsTotal *Gauge

	// MessagesRoutedTotal counts messages the router has dispatched.
	// Labels: type (event, invocation, result, error)
	MessagesRoutedTotal *Counter

	// PublicationsTotal counts PUBLISH requests processed.
	// Labels: realm
	PublicationsTotal *Counter

	// CallsTotal counts CALL requests processed.
	// Labels: realm
	CallsTotal *Counter

	// ErrorsTotal counts errors returned to peers by type.
	// Labels: reason
	ErrorsTotal *Counter

	// UptimeSeconds is a gauge of the router's uptime in seconds.
	UptimeSeconds *Gauge

	// defaultRegistry is the global metrics registry.
	defaultRegistry *Registry

	// initOnce ensures Init() is only called once.
	initOnce sync.Once
)

// Init initializes the default metrics and returns the registry.
// This function is idempotent and safe to call multiple times.
func Init() *Registry {
	initOnce.Do(func() {
		defaultRegistry = NewRegistry()

		SessionsTotal = defaultRegistry.NewCounter(
			"wampd_sessions_total",
			"Total number of sessions that completed a handshake",
		)

		ActiveSessions = defaultRegistry.NewGauge(
			"wampd_active_sessions",
			"Number of currently connected sessions",
			"realm",
		)

		RealmsTotal = defaultRegistry.NewGauge(
			"wampd_realms_total",
			"Number of configured realms",
		)

		MessagesRoutedTotal = defaultRegistry.NewCounter(
			"wampd_messages_routed_total",
			"Total number of messages routed between peers",
			"type",
		)

		PublicationsTotal = defaultRegistry.NewCounter(
			"wampd_publications_total",
			"Total number of PUBLISH requests processed",
			"realm",
		)

		CallsTotal = defaultRegistry.NewCounter(
			"wampd_calls_total",
			"Total number of CALL requests processed",
			"realm",
		)

		ErrorsTotal = defaultRegistry.NewCounter(
			"wampd_errors_total",
			"Total number of errors returned to peers",
			"reason",
		)

		UptimeSeconds = defaultRegistry.NewGauge(
			"wampd_uptime_seconds",
			"Router uptime in seconds",
		)
	})

	return defaultRegistry
}

// DefaultRegistry returns the default metrics registry.
// Returns nil if Init() has not been called.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Reset resets all default metrics. Useful for testing.
// This also resets the initOnce, allowing Init() to be called again.
func Reset() {
	initOnce = sync.Once{}
	defaultRegistry = nil
	SessionsTotal = nil
	ActiveSessions = nil
	RealmsTotal = nil
	MessagesRoutedTotal = nil
	PublicationsTotal = nil
	CallsTotal = nil
	ErrorsTotal = nil
	UptimeSeconds = nil
}
