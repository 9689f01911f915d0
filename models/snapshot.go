package models

import "time"

// GroupStats aggregates the members of one party or district.
type GroupStats struct {
	Present      int     `json:"present"`
	Absent       int     `json:"absent"`
	Members      int     `json:"members"`
	AbsenteeRate float64 `json:"absentee_rate"`
}

// Overall holds legislature-wide totals.
type Overall struct {
	TotalMPs          int     `json:"total_mps"`
	TotalSittingDays  int     `json:"total_sitting_days"`
	TotalPresent      int     `json:"total_present"`
	TotalAbsent       int     `json:"total_absent"`
	AvgAbsenteeRate   float64 `json:"avg_absentee_rate"`
	AvgAttendanceRate float64 `json:"avg_attendance_rate"`
}

// Statistics is the aggregate computed once per run.
type Statistics struct {
	ByParty        map[string]GroupStats `json:"by_party"`
	ByDistrict     map[string]GroupStats `json:"by_district"`
	WorstAbsentees []string              `json:"worst_absentees"`
	BestAttendees  []string              `json:"best_attendees"`
	Overall        Overall               `json:"overall"`
}

// Metadata describes the run that produced a snapshot.
type Metadata struct {
	ScrapedAt       time.Time `json:"scraped_at"`
	Legislature     string    `json:"legislature"`
	LegislatureID   string    `json:"legislature_id"`
	TotalMPs        int       `json:"total_mps"`
	Source          string    `json:"source"`
	ScraperVersion  string    `json:"scraper_version"`
	RunID           string    `json:"run_id"`
	Partial         bool      `json:"partial"`
	DegradedMembers int       `json:"degraded_members"`
}

// Snapshot is the single artifact persisted by a run.
type Snapshot struct {
	Metadata   Metadata        `json:"metadata"`
	Statistics Statistics      `json:"statistics"`
	Members    []MemberSummary `json:"members"`
}
