package domain

import "time"

type RunState struct {
	Persona      string    `db:"persona"`
	LastRunAt    time.Time `db:"last_run_at"`
	LastReportID int64     `db:"last_report_id"`
	TotalRuns    int64     `db:"total_runs"`
}

// RunStats holds statistics about a single dashboard run.
type RunStats struct {
	Persona   string
	ReportID  int64
	Articles  int
	Funding   int
	Quotes    int
	Alerts    int
	Published bool
	Duration  time.Duration
}
