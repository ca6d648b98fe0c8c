package scheduler

import "time"

// Config controls when the batch jobs fire and how long they may run.
type Config struct {
	JobTimeout time.Duration

	SweepHour   int
	SweepMinute int

	ReportWeekday time.Weekday
	ReportHour    int
	ReportMinute  int
}

func DefaultConfig() Config {
	return Config{
		JobTimeout:    10 * time.Minute,
		SweepHour:     2,
		ReportWeekday: time.Monday,
		ReportHour:    3,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.SweepHour == 0 && c.SweepMinute == 0 {
		c.SweepHour = defaults.SweepHour
	}
	if c.ReportHour == 0 && c.ReportMinute == 0 {
		c.ReportWeekday = defaults.ReportWeekday
		c.ReportHour = defaults.ReportHour
	}
	return c
}
