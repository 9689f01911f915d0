// Package models defines data structures for the attendance scraper.
package models

import (
	"strings"
	"time"
)

// UnknownGroup is the bucket used when a party or district is missing.
const UnknownGroup = "Unknown"

// Member is one seat-holder discovered in the directory listing.
type Member struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Party    string `json:"party"`
	District string `json:"district"`
}

// Status is the normalized attendance mark for one sitting.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusOther   Status = "other"
)

// ParseStatus maps the status text shown by the source site.
func ParseStatus(text string) Status {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "present":
		return StatusPresent
	case "absent":
		return StatusAbsent
	default:
		return StatusOther
	}
}

// AttendanceRecord is a single member's mark for one sitting day.
type AttendanceRecord struct {
	Date   string `json:"date"`
	Status Status `json:"status"`
}

// HouseRecord is one row of the roster-wide attendance view.
type HouseRecord struct {
	Date   string `json:"date"`
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// ResolvedHouseRecord links a HouseRecord to a roster member.
// MemberID is empty when no member matched.
type ResolvedHouseRecord struct {
	HouseRecord
	MemberID string  `json:"member_id"`
	Score    float64 `json:"score"`
}

// MemberAttendance is the stage two output for one member.
type MemberAttendance struct {
	Member    Member
	Records   []AttendanceRecord
	Degraded  bool
	Completed bool
}

// MemberSummary is the per-member row persisted in the snapshot.
type MemberSummary struct {
	Member
	TotalSittings  int     `json:"total_sittings"`
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	Other          int     `json:"other"`
	AbsenteeRate   float64 `json:"absentee_rate"`
	AttendanceRate float64 `json:"attendance_rate"`
	PhotoURL       string  `json:"photo_url,omitempty"`
	ProfileURL     string  `json:"profile_url,omitempty"`
	AttendanceURL  string  `json:"attendance_url,omitempty"`
	Degraded       bool    `json:"degraded,omitempty"`
}

// RunResult holds diagnostics for one pipeline run.
type RunResult struct {
	StartTime        time.Time
	EndTime          time.Time
	MemberCount      int
	RequestCount     int
	ErrorCount       int
	RetryCount       int
	FailedURLs       []string
	ErrorsByType     map[string]int
	SkippedFragments map[string]int
	DegradedMembers  []string
}
