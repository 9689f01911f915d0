// Package stats folds per-member attendance records into the summary and
// aggregate figures persisted in a snapshot. Everything here is pure and
// independent of input order.
package stats

import (
	"math"
	"sort"
	"strings"

	"github.com/aluiziolira/mp-attendance/models"
)

// DefaultTopN is the ranking length used by the published dashboard.
const DefaultTopN = 20

// Rate returns part/total as a percentage rounded to one decimal, or 0 when
// total is 0.
func Rate(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Summarize computes a member's counts and rates. Only present and absent
// marks count as sittings; other marks are tallied separately.
func Summarize(m models.Member, records []models.AttendanceRecord) models.MemberSummary {
	s := models.MemberSummary{Member: m}
	for _, r := range records {
		switch r.Status {
		case models.StatusPresent:
			s.Present++
		case models.StatusAbsent:
			s.Absent++
		default:
			s.Other++
		}
	}
	s.TotalSittings = s.Present + s.Absent
	s.AbsenteeRate = Rate(s.Absent, s.TotalSittings)
	s.AttendanceRate = Rate(s.Present, s.TotalSittings)
	return s
}

// SummarizeAll summarizes every entry, preserving input order.
func SummarizeAll(entries []models.MemberAttendance) []models.MemberSummary {
	out := make([]models.MemberSummary, 0, len(entries))
	for _, e := range entries {
		s := Summarize(e.Member, e.Records)
		s.Degraded = e.Degraded
		out = append(out, s)
	}
	return out
}

// Aggregate builds the legislature-wide statistics. Rankings hold at most
// topN member IDs; members without sittings are not ranked.
func Aggregate(entries []models.MemberAttendance, topN int) models.Statistics {
	if topN <= 0 {
		topN = DefaultTopN
	}

	summaries := SummarizeAll(entries)
	st := models.Statistics{
		ByParty:        groupBy(summaries, func(s models.MemberSummary) string { return s.Party }),
		ByDistrict:     groupBy(summaries, func(s models.MemberSummary) string { return s.District }),
		WorstAbsentees: []string{},
		BestAttendees:  []string{},
	}

	ranked := make([]models.MemberSummary, 0, len(summaries))
	for _, s := range summaries {
		if s.TotalSittings > 0 {
			ranked = append(ranked, s)
		}
	}
	st.WorstAbsentees = topIDs(ranked, topN, func(a, b models.MemberSummary) bool {
		return a.AbsenteeRate > b.AbsenteeRate
	})
	st.BestAttendees = topIDs(ranked, topN, func(a, b models.MemberSummary) bool {
		return a.AbsenteeRate < b.AbsenteeRate
	})

	dates := make(map[string]struct{})
	for _, e := range entries {
		for _, r := range e.Records {
			dates[r.Date] = struct{}{}
		}
	}

	var present, absent int
	for _, s := range summaries {
		present += s.Present
		absent += s.Absent
	}
	st.Overall = models.Overall{
		TotalMPs:          len(entries),
		TotalSittingDays:  len(dates),
		TotalPresent:      present,
		TotalAbsent:       absent,
		AvgAbsenteeRate:   Rate(absent, present+absent),
		AvgAttendanceRate: Rate(present, present+absent),
	}
	return st
}

// GroupKey normalizes a party or district name for grouping.
func GroupKey(value string) string {
	if key := strings.TrimSpace(value); key != "" {
		return key
	}
	return models.UnknownGroup
}

func groupBy(summaries []models.MemberSummary, key func(models.MemberSummary) string) map[string]models.GroupStats {
	groups := make(map[string]models.GroupStats)
	for _, s := range summaries {
		k := GroupKey(key(s))
		g := groups[k]
		g.Present += s.Present
		g.Absent += s.Absent
		g.Members++
		groups[k] = g
	}
	for k, g := range groups {
		g.AbsenteeRate = Rate(g.Absent, g.Present+g.Absent)
		groups[k] = g
	}
	return groups
}

// topIDs sorts a copy of summaries by less, breaking ties by member ID.
func topIDs(summaries []models.MemberSummary, n int, less func(a, b models.MemberSummary) bool) []string {
	sorted := make([]models.MemberSummary, len(summaries))
	copy(sorted, summaries)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return a.ID < b.ID
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	ids := make([]string, 0, n)
	for _, s := range sorted[:n] {
		ids = append(ids, s.ID)
	}
	return ids
}
