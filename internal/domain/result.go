package domain

import (
	"fmt"
	"time"
)

// FlushReason records what closed a window.
type FlushReason string

const (
	ReasonTick   FlushReason = "tick"
	ReasonStop   FlushReason = "stop"
	ReasonError  FlushReason = "error"
	ReasonFull   FlushReason = "full"
	ReasonManual FlushReason = "manual"
)

// Thresholds is the signal strength configuration in effect for a flush.
type Thresholds struct {
	InRangeDBm        int16         `json:"in_range_dbm"`
	OutOfRangeDBm     int16         `json:"out_of_range_dbm"`
	OutOfRangeTimeout time.Duration `json:"out_of_range_timeout"`
	SamplingInterval  time.Duration `json:"sampling_interval"`
}

// ResultRecord is the summary of one flushed window, keyed by task name.
type ResultRecord struct {
	TaskName    string      `json:"task_name"`
	Status      ErrorStatus `json:"error_status"`
	EventCount  int         `json:"event_count"`
	Dropped     uint64      `json:"dropped"`
	SummaryText string      `json:"summary_text"`
	Thresholds  Thresholds  `json:"thresholds"`
	Reason      FlushReason `json:"reason"`
	OpenedAt    time.Time   `json:"opened_at"`
	ClosedAt    time.Time   `json:"closed_at"`
}

// Header renders the one line status header shown above the event lines.
func (r *ResultRecord) Header() string {
	return fmt.Sprintf("ErrorStatus: %s, EventCount: %d, HighDBm: %d, LowDBm: %d, Timeout: %d, Sampling: %d",
		r.Status,
		r.EventCount,
		r.Thresholds.InRangeDBm,
		r.Thresholds.OutOfRangeDBm,
		r.Thresholds.OutOfRangeTimeout.Milliseconds(),
		r.Thresholds.SamplingInterval.Milliseconds(),
	)
}

// Message is the header followed by the summary lines.
func (r *ResultRecord) Message() string {
	if r.SummaryText == "" {
		return r.Header()
	}
	return r.Header() + "\n" + r.SummaryText
}
