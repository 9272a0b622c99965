package domain

import (
	"errors"
	"time"
)

// RSSIRange holds the hysteresis thresholds of a signal strength filter.
type RSSIRange struct {
	InRangeDBm    int16 `yaml:"in_range_dbm" json:"in_range_dbm"`
	OutOfRangeDBm int16 `yaml:"out_of_range_dbm" json:"out_of_range_dbm"`
}

// FilterConfig selects which advertisements a watcher is interested in.
type FilterConfig struct {
	CompanyID         uint16        `yaml:"company_id" json:"company_id"`
	RSSI              *RSSIRange    `yaml:"rssi" json:"rssi,omitempty"`
	SamplingInterval  time.Duration `yaml:"sampling_interval" json:"sampling_interval,omitempty"`
	OutOfRangeTimeout time.Duration `yaml:"out_of_range_timeout" json:"out_of_range_timeout,omitempty"`
}

func (c FilterConfig) Validate() error {
	if c.SamplingInterval < 0 {
		return errors.New("sampling_interval must be >= 0")
	}
	if c.OutOfRangeTimeout < 0 {
		return errors.New("out_of_range_timeout must be >= 0")
	}
	if c.RSSI != nil && c.RSSI.OutOfRangeDBm > c.RSSI.InRangeDBm {
		return errors.New("rssi.out_of_range_dbm must not exceed rssi.in_range_dbm")
	}
	return nil
}

// Thresholds snapshots the signal strength settings for result records.
func (c FilterConfig) Thresholds() Thresholds {
	t := Thresholds{
		OutOfRangeTimeout: c.OutOfRangeTimeout,
		SamplingInterval:  c.SamplingInterval,
	}
	if c.RSSI != nil {
		t.InRangeDBm = c.RSSI.InRangeDBm
		t.OutOfRangeDBm = c.RSSI.OutOfRangeDBm
	}
	return t
}
