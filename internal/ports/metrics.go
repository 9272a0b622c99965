package ports

// Metric names shared by the pipeline and the observability adapters.
const (
	MetricEventsReceived  = "beacon_events_received_total"
	MetricEventsFiltered  = "beacon_events_filtered_total"
	MetricEventsGated     = "beacon_events_gated_total"
	MetricEventsAppended  = "beacon_events_appended_total"
	MetricEventsDropped   = "beacon_events_dropped_total"
	MetricFlushes         = "beacon_flushes_total"
	MetricPublishFailures = "beacon_publish_failures_total"
	MetricRangeExits      = "beacon_range_exits_total"
	MetricWindowEvents    = "beacon_window_events"
	MetricRegistrations   = "beacon_registrations_active"
	MetricFlushLatency    = "beacon_flush_latency_seconds"
)
